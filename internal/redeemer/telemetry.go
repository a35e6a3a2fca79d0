package redeemer

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("clawredeem.internal.redeemer")

var meter = otel.Meter("clawredeem.internal.redeemer")

// submissions counts submitted codes by outcome. The global meter provider
// never fails instrument creation, so the error is dropped.
var submissions, _ = meter.Int64Counter(
	"clawredeem.redeemer.submissions",
	metric.WithDescription("Codes submitted to the redeem form, by outcome."),
	metric.WithUnit("{code}"),
)

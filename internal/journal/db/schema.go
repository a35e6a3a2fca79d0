package db

import _ "embed"

//go:embed schema.sql
var Schema string

// Outcome values stored in submission.outcome.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeSkipped  = "skipped"
)

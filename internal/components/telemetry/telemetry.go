package telemetry

import (
	"fmt"
)

// API is an abstraction over logging/metrics so components can report what
// happened without knowing where it ends up.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that failed in a way the operator should look at.
	//
	// `id` names the failing component, not the line that failed. Ids follow
	// `<struct or area>.<method>` in lowercase with dashes, ex. `session.get`
	// or `redeemer.login`. Extra detail goes in params or in the wrapped error.
	// Look at the `report_...` constants in each package for examples.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that did not break the run but is worth a look,
	// like a dashboard page the points could not be read from.
	ReportWarning(id string, params ...any)

	// ReportDebug reports information that is only useful while debugging.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current count of an event. Counts are points over
	// time, they should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI attaches a namespace to every report of the inner API, similar to
// a prefixed sub-logger.
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI creates a ScopedAPI out of a given namespace and another api.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}

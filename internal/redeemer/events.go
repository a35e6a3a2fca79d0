package redeemer

import (
	"context"
	"time"

	"clawredeem/internal/scrapers/clawportal"
)

// OutcomeKind classifies one submitted code.
type OutcomeKind int

const (
	Accepted OutcomeKind = iota
	Rejected
)

func (k OutcomeKind) String() string {
	if k == Rejected {
		return "rejected"
	}
	return "accepted"
}

// Outcome is what the portal said about a submitted code. Message holds the
// portal's error text for rejected codes.
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

func AcceptedOutcome() Outcome {
	return Outcome{Kind: Accepted}
}

func RejectedOutcome(message string) Outcome {
	return Outcome{Kind: Rejected, Message: message}
}

// Event is a status update emitted while a run progresses.
type Event interface {
	event()
}

// RunStarted opens a run. Every later event until Aborted or Finished
// belongs to RunId.
type RunStarted struct {
	RunId   string
	Started time.Time
	Codes   int
}

type LoginAttempt struct {
	Email string
}

// LoginResult reports the end of the login step. Err is nil on success.
type LoginResult struct {
	Success bool
	Err     *AbortError
}

type PointsSnapshot struct {
	Points clawportal.ClawPoints
}

// PointsUnavailable is emitted when the dashboard could not be read. The run
// continues regardless.
type PointsUnavailable struct {
	Reason string
}

type CodeSubmitted struct {
	Index   int
	Code    string
	Outcome Outcome
}

// CodeSkipped is emitted when a request for a code failed and the transport
// policy says to move on.
type CodeSkipped struct {
	Index int
	Code  string
	Err   error
}

type Aborted struct {
	RunId string
	Err   *AbortError
}

type Finished struct {
	Summary Summary
}

func (RunStarted) event() {}
func (LoginAttempt) event() {}
func (LoginResult) event() {}
func (PointsSnapshot) event() {}
func (PointsUnavailable) event() {}
func (CodeSubmitted) event() {}
func (CodeSkipped) event() {}
func (Aborted) event() {}
func (Finished) event() {}

// Sink receives the events of a run in order. Emit is called synchronously
// from the run, so a slow sink slows the run.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event)

func (f SinkFunc) Emit(ctx context.Context, event Event) {
	f(ctx, event)
}

// Sinks fans every event out to each sink in order.
type Sinks []Sink

func (s Sinks) Emit(ctx context.Context, event Event) {
	for _, sink := range s {
		if sink == nil {
			continue
		}
		sink.Emit(ctx, event)
	}
}

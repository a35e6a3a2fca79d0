package commands

import (
	"context"
	"log/slog"

	"clawredeem/internal/redeemer"
)

// consoleSink logs the progress of a run.
type consoleSink struct {
	total int
}

func (s *consoleSink) Emit(ctx context.Context, event redeemer.Event) {
	switch e := event.(type) {
	case redeemer.RunStarted:
		s.total = e.Codes
		slog.InfoContext(ctx, "starting run", "run", e.RunId, "codes", e.Codes)
	case redeemer.LoginAttempt:
		slog.InfoContext(ctx, "logging in", "email", e.Email)
	case redeemer.LoginResult:
		if e.Success {
			slog.InfoContext(ctx, "logged in")
			return
		}
		slog.ErrorContext(ctx, "login failed", "reason", e.Err.Reason.String())
	case redeemer.PointsSnapshot:
		slog.InfoContext(
			ctx, "points",
			"total", e.Points.Total,
			"redeemable", e.Points.Redeemable,
			"claimed", e.Points.Claimed,
		)
	case redeemer.PointsUnavailable:
		slog.WarnContext(ctx, "could not read points", "reason", e.Reason)
	case redeemer.CodeSubmitted:
		if e.Outcome.Kind == redeemer.Rejected {
			slog.WarnContext(ctx, "code rejected", "n", e.Index+1, "of", s.total, "code", e.Code, "message", e.Outcome.Message)
			return
		}
		slog.InfoContext(ctx, "code accepted", "n", e.Index+1, "of", s.total, "code", e.Code)
	case redeemer.CodeSkipped:
		slog.WarnContext(ctx, "code skipped", "n", e.Index+1, "of", s.total, "code", e.Code, "err", e.Err)
	case redeemer.Aborted:
		slog.ErrorContext(ctx, "run aborted", "run", e.RunId, "reason", e.Err.Reason.String())
	case redeemer.Finished:
		slog.InfoContext(
			ctx, "run finished",
			"run", e.Summary.RunId,
			"accepted", e.Summary.Count(redeemer.Accepted),
			"rejected", e.Summary.Count(redeemer.Rejected),
			"took", e.Summary.Finished.Sub(e.Summary.Started),
		)
	}
}

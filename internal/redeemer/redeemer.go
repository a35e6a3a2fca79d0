package redeemer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clawredeem/internal/components/assert"
	"clawredeem/internal/components/chrono"
	"clawredeem/internal/components/telemetry"
	"clawredeem/internal/scrapers/clawportal"
	"clawredeem/pkg/htmlutil"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_redeemer_login   = "redeemer.login"
	report_redeemer_points  = "redeemer.points"
	report_redeemer_submit  = "redeemer.submit"
	report_redeemer_skipped = "redeemer.skipped"
	report_redeemer_count   = "redeemer.accepted"
)

// Session is the HTTP side of a run. *clawportal.Session implements it.
type Session interface {
	Get(ctx context.Context, path string) (clawportal.Response, error)
	PostForm(ctx context.Context, path string, body string) (clawportal.Response, error)
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Pacing holds the pauses taken between submissions. An accepted code is
// followed by a short pause, a points refresh and a long pause; a rejected
// code only by a short pause.
type Pacing struct {
	AfterRejected      time.Duration
	AfterAccepted      time.Duration
	AfterPointsRefresh time.Duration
}

func DefaultPacing() Pacing {
	return Pacing{
		AfterRejected:      3 * time.Second,
		AfterAccepted:      1 * time.Second,
		AfterPointsRefresh: 15 * time.Second,
	}
}

// TransportPolicy decides what a failed request (no HTTP response at all) does
// to the run.
type TransportPolicy int

const (
	// AbortOnTransportError stops the run at the first failed request.
	AbortOnTransportError TransportPolicy = iota
	// SkipOnTransportError reports the code being processed as skipped and
	// continues with the next one. Failures while logging in still abort.
	SkipOnTransportError
)

func ParseTransportPolicy(s string) (TransportPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return AbortOnTransportError, nil
	case "skip":
		return SkipOnTransportError, nil
	}
	return AbortOnTransportError, fmt.Errorf("unknown transport policy %q, expected \"abort\" or \"skip\"", s)
}

func (p TransportPolicy) String() string {
	if p == SkipOnTransportError {
		return "skip"
	}
	return "abort"
}

// State is a step of the run.
type State int

const (
	StateInit State = iota
	StateLoggedIn
	StateReady
	StateSubmitting
	StatePaced
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateLoggedIn:
		return "logged-in"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StatePaced:
		return "paced"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// CodeResult is what happened to one code. SkipErr is set instead of a
// meaningful Outcome when the code was skipped.
type CodeResult struct {
	Index   int
	Code    string
	Outcome Outcome
	SkipErr error
}

func (r CodeResult) Skipped() bool {
	return r.SkipErr != nil
}

type Summary struct {
	RunId    string
	State    State
	Total    int
	Results  []CodeResult
	Points   *clawportal.ClawPoints
	Abort    *AbortError
	Started  time.Time
	Finished time.Time
}

// Count returns how many results have the given outcome, skipped codes excluded.
func (s Summary) Count(kind OutcomeKind) int {
	n := 0
	for _, r := range s.Results {
		if !r.Skipped() && r.Outcome.Kind == kind {
			n++
		}
	}
	return n
}

type Options struct {
	Session     Session
	Endpoints   clawportal.Endpoints
	Credentials Credentials
	Pacing      Pacing
	Transport   TransportPolicy
	Clock       chrono.API
	// Sink can be nil.
	Sink Sink
	Tel  telemetry.API
}

// Redeemer logs one account in and submits a list of codes, one at a time.
// It owns its Session for the whole run and is not safe for concurrent use.
type Redeemer struct {
	session     Session
	endpoints   clawportal.Endpoints
	credentials Credentials
	pacing      Pacing
	transport   TransportPolicy
	clock       chrono.API
	sink        Sink
	tel         telemetry.API

	state    State
	accepted int64
}

func New(opts Options) *Redeemer {
	assert.NotNil(opts.Session)
	assert.NotNil(opts.Clock)
	assert.NotNil(opts.Tel)
	assert.NotEmptyStr(opts.Credentials.Email)
	assert.NotEmptyStr(opts.Credentials.Password)
	assert.NonNegative("rejected pause", opts.Pacing.AfterRejected)
	assert.NonNegative("accepted pause", opts.Pacing.AfterAccepted)
	assert.NonNegative("points refresh pause", opts.Pacing.AfterPointsRefresh)

	sink := opts.Sink
	if sink == nil {
		sink = Sinks{}
	}

	return &Redeemer{
		session:     opts.Session,
		endpoints:   opts.Endpoints.WithDefaults(),
		credentials: opts.Credentials,
		pacing:      opts.Pacing,
		transport:   opts.Transport,
		clock:       opts.Clock,
		sink:        sink,
		tel:         telemetry.NewScopedAPI("redeemer", opts.Tel),
		state:       StateInit,
	}
}

func (r *Redeemer) State() State {
	return r.state
}

func (r *Redeemer) emit(ctx context.Context, event Event) {
	r.sink.Emit(ctx, event)
}

func (r *Redeemer) transition(to State) {
	r.tel.ReportDebug("state", r.state.String(), to.String())
	r.state = to
}

func abortErr(reason AbortReason, stage Stage, index int, code string, err error) *AbortError {
	return &AbortError{Reason: reason, Stage: stage, Index: index, Code: code, Err: err}
}

// requestFailed turns an error from the Session into an abort, telling a
// cancelled context apart from a failed request.
func requestFailed(ctx context.Context, stage Stage, index int, code string, err error) *AbortError {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return abortErr(ReasonCancelled, stage, index, code, err)
	}
	return abortErr(ReasonTransport, stage, index, code, err)
}

func statusErr(what string, res clawportal.Response) error {
	return fmt.Errorf("%s: status %d", what, res.StatusCode)
}

// Login moves the run from init to logged in.
func (r *Redeemer) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redeemer:Login")
	defer span.End()

	r.emit(ctx, LoginAttempt{Email: r.credentials.Email})

	err := r.login(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Reason.String())
		r.tel.ReportBroken(report_redeemer_login, err)
		r.emit(ctx, LoginResult{Success: false, Err: err})
		return err
	}

	r.transition(StateLoggedIn)
	r.emit(ctx, LoginResult{Success: true})
	return nil
}

func (r *Redeemer) login(ctx context.Context) *AbortError {
	res, err := r.session.Get(ctx, r.endpoints.Login)
	if err != nil {
		return requestFailed(ctx, StageLogin, -1, "", err)
	}
	if !res.IsSuccess() {
		return abortErr(ReasonHttpFailure, StageLogin, -1, "", statusErr("login page", res))
	}
	page, err := res.Query()
	if err != nil {
		return abortErr(ReasonNoCsrfToken, StageLogin, -1, "", fmt.Errorf("parse login page: %w", err))
	}
	token, ok := clawportal.ExtractCsrfToken(page)
	if !ok {
		return abortErr(ReasonNoCsrfToken, StageLogin, -1, "", nil)
	}
	r.tel.ReportDebug("csrf token", token)

	body := clawportal.EncodeLogin(r.credentials.Email, r.credentials.Password, token).Raw()
	res, err = r.session.PostForm(ctx, r.endpoints.Login, body)
	if err != nil {
		return requestFailed(ctx, StageLogin, -1, "", err)
	}
	if !res.IsSuccess() {
		return abortErr(ReasonHttpFailure, StageLogin, -1, "", statusErr("login", res))
	}
	if strings.Contains(res.Body, clawportal.InvalidLoginText) {
		return abortErr(ReasonInvalidCredentials, StageLogin, -1, "", nil)
	}
	return nil
}

// Points reads the balance from the dashboard. Missing points are not an
// error: ok is false and a PointsUnavailable event is emitted. Only a
// cancelled context, or a failed request under AbortOnTransportError, returns
// an error.
func (r *Redeemer) Points(ctx context.Context) (points clawportal.ClawPoints, ok bool, abort *AbortError) {
	ctx, span := tracer.Start(ctx, "redeemer:Points")
	defer span.End()

	unavailable := func(reason string) (clawportal.ClawPoints, bool, *AbortError) {
		r.tel.ReportWarning(report_redeemer_points, reason)
		r.emit(ctx, PointsUnavailable{Reason: reason})
		return clawportal.ClawPoints{}, false, nil
	}

	res, err := r.session.Get(ctx, r.endpoints.Dashboard)
	if err != nil {
		failed := requestFailed(ctx, StagePoints, -1, "", err)
		if failed.Reason == ReasonCancelled || r.transport == AbortOnTransportError {
			span.SetStatus(otelcodes.Error, failed.Reason.String())
			return clawportal.ClawPoints{}, false, failed
		}
		return unavailable(err.Error())
	}
	if !res.IsSuccess() {
		return unavailable(statusErr("dashboard", res).Error())
	}
	page, err := res.Query()
	if err != nil {
		return unavailable(fmt.Sprintf("parse dashboard: %s", err))
	}
	points, ok = clawportal.ExtractPoints(page)
	if !ok {
		return unavailable("dashboard has no points box")
	}

	span.SetAttributes(
		attribute.Int("points.total", points.Total),
		attribute.Int("points.redeemable", points.Redeemable),
		attribute.Int("points.claimed", points.Claimed),
	)
	r.emit(ctx, PointsSnapshot{Points: points})
	return points, true, nil
}

func (r *Redeemer) pace(ctx context.Context, d time.Duration, index int, code string) *AbortError {
	r.transition(StatePaced)
	r.tel.ReportDebug("pacing", d.String())
	err := r.clock.Sleep(ctx, d)
	if err != nil {
		return abortErr(ReasonCancelled, StageRedeem, index, code, err)
	}
	return nil
}

// submit runs one code through the redeem form and classifies the response.
func (r *Redeemer) submit(ctx context.Context, index int, code string) (Outcome, *AbortError) {
	err := clawportal.ValidateCode(code)
	if err != nil {
		return Outcome{}, abortErr(ReasonInvalidCodeLength, StageRedeem, index, code, err)
	}

	res, err := r.session.Get(ctx, r.endpoints.RedeemPage)
	if err != nil {
		return Outcome{}, requestFailed(ctx, StageRedeem, index, code, err)
	}
	if !res.IsSuccess() {
		return Outcome{}, abortErr(ReasonHttpFailure, StageRedeem, index, code, statusErr("redeem page", res))
	}
	page, err := res.Query()
	if err != nil {
		return Outcome{}, abortErr(ReasonNoRedeemToken, StageRedeem, index, code, fmt.Errorf("parse redeem page: %w", err))
	}
	token, ok := clawportal.ExtractRedeemToken(page)
	if !ok {
		return Outcome{}, abortErr(ReasonNoRedeemToken, StageRedeem, index, code, nil)
	}

	form, err := clawportal.EncodeRedeem(code, token)
	if err != nil {
		return Outcome{}, abortErr(ReasonInvalidCodeLength, StageRedeem, index, code, err)
	}

	res, err = r.session.PostForm(ctx, r.endpoints.Redeem, form.Encode())
	if err != nil {
		return Outcome{}, requestFailed(ctx, StageRedeem, index, code, err)
	}

	// the form error is checked before the status, the portal may answer a
	// refused code with a 4xx and the error message
	page, err = res.Query()
	if err == nil {
		if message, rejected := clawportal.FormError(page); rejected {
			return RejectedOutcome(htmlutil.NormalizeText(message)), nil
		}
	}
	// a non-2xx answer without the form error is not counted as accepted:
	// the code's fate is unknown, so the run stops with HttpFailure
	if !res.IsSuccess() {
		return Outcome{}, abortErr(ReasonHttpFailure, StageRedeem, index, code, statusErr("redeem", res))
	}
	return AcceptedOutcome(), nil
}

func (r *Redeemer) record(ctx context.Context, summary *Summary, index int, code string, outcome Outcome) {
	summary.Results = append(summary.Results, CodeResult{Index: index, Code: code, Outcome: outcome})
	submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.Kind.String())))
	if outcome.Kind == Accepted {
		r.accepted++
		r.tel.ReportCount(report_redeemer_count, r.accepted)
	}
	r.emit(ctx, CodeSubmitted{Index: index, Code: code, Outcome: outcome})
}

// redeemAll is the submission loop. It returns the first abort.
func (r *Redeemer) redeemAll(ctx context.Context, codes []string, summary *Summary) *AbortError {
	for i, raw := range codes {
		code := clawportal.NormalizeCode(raw)
		last := i == len(codes)-1

		r.transition(StateSubmitting)

		codeCtx, span := tracer.Start(ctx, "redeemer:submit", trace.WithAttributes(
			attribute.Int("code.index", i),
			attribute.Int("code.length", clawportal.CodeLength(code)),
		))
		outcome, abort := r.submit(codeCtx, i, code)
		if abort != nil {
			span.RecordError(abort)
			span.SetStatus(otelcodes.Error, abort.Reason.String())
		} else {
			span.SetAttributes(attribute.String("code.outcome", outcome.Kind.String()))
		}
		span.End()

		if abort != nil {
			if abort.Reason != ReasonTransport || r.transport != SkipOnTransportError {
				return abort
			}
			r.tel.ReportWarning(report_redeemer_skipped, abort)
			summary.Results = append(summary.Results, CodeResult{Index: i, Code: code, SkipErr: abort})
			r.emit(ctx, CodeSkipped{Index: i, Code: code, Err: abort})
			if !last {
				if abort := r.pace(ctx, r.pacing.AfterRejected, i, code); abort != nil {
					return abort
				}
			}
			continue
		}

		r.record(ctx, summary, i, code, outcome)

		switch outcome.Kind {
		case Rejected:
			r.tel.ReportDebug(report_redeemer_submit, "rejected", code, outcome.Message)
			if last {
				continue
			}
			if abort := r.pace(ctx, r.pacing.AfterRejected, i, code); abort != nil {
				return abort
			}
		case Accepted:
			r.tel.ReportDebug(report_redeemer_submit, "accepted", code)
			if abort := r.pace(ctx, r.pacing.AfterAccepted, i, code); abort != nil {
				return abort
			}
			points, ok, abort := r.Points(ctx)
			if abort != nil {
				abort.Index, abort.Code = i, code
				return abort
			}
			if ok {
				summary.Points = &points
			}
			if last {
				continue
			}
			if abort := r.pace(ctx, r.pacing.AfterPointsRefresh, i, code); abort != nil {
				return abort
			}
		}
	}
	return nil
}

// Run logs in, reads the balance and submits every code in order. Codes are
// trimmed before use. A rejected code does not stop the run; any other
// failure does, and is returned as an *AbortError together with the partial
// summary. Run is the only place that decides to stop.
func (r *Redeemer) Run(ctx context.Context, codes []string) (Summary, error) {
	ctx, span := tracer.Start(ctx, "redeemer:Run", trace.WithAttributes(
		attribute.Int("codes", len(codes)),
	))
	defer span.End()

	summary := Summary{
		RunId:   uuid.NewString(),
		Total:   len(codes),
		Started: r.clock.Now(),
	}
	span.SetAttributes(attribute.String("run.id", summary.RunId))
	r.emit(ctx, RunStarted{RunId: summary.RunId, Started: summary.Started, Codes: len(codes)})

	abort := r.run(ctx, codes, &summary)
	summary.Finished = r.clock.Now()

	if abort != nil {
		r.transition(StateAborted)
		summary.State = StateAborted
		summary.Abort = abort
		span.RecordError(abort)
		span.SetStatus(otelcodes.Error, abort.Reason.String())
		r.emit(ctx, Aborted{RunId: summary.RunId, Err: abort})
		return summary, abort
	}

	r.transition(StateDone)
	summary.State = StateDone
	r.emit(ctx, Finished{Summary: summary})
	return summary, nil
}

func (r *Redeemer) run(ctx context.Context, codes []string, summary *Summary) *AbortError {
	if err := r.Login(ctx); err != nil {
		return err.(*AbortError)
	}

	points, ok, abort := r.Points(ctx)
	if abort != nil {
		return abort
	}
	if ok {
		summary.Points = &points
	}
	r.transition(StateReady)

	return r.redeemAll(ctx, codes, summary)
}

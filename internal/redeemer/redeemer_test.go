package redeemer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"clawredeem/internal/components/chrono"
	"clawredeem/internal/components/telemetry"
	"clawredeem/internal/scrapers/clawportal"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	loginPage     = `<form><input type="hidden" name="_csrf_token" value="csrf-1"><input name="email"></form>`
	dashboardPage = `<div class="dashboard-box"><p>1.250</p><p>1.000</p><p>250</p></div>`
	redeemPage    = `<form name="code"><input type="hidden" id="code__token" value="tok-1"></form>`
	rejectedPage  = `<form><div class="form-error-message">  Code   ungültig </div></form>`
)

type request struct {
	Method string
	Path   string
	Body   string
}

// fakePortal answers like the portal does. Codes listed in rejected get the
// form error, everything else is accepted. fail can replace any answer.
type fakePortal struct {
	rejected map[string]bool
	fail     func(req request, n int) (clawportal.Response, error, bool)
	requests []request
}

func ok(body string) clawportal.Response {
	return clawportal.Response{StatusCode: 200, Status: "200 OK", Body: body}
}

func status(code int) clawportal.Response {
	return clawportal.Response{StatusCode: code, Status: fmt.Sprint(code)}
}

func (p *fakePortal) do(ctx context.Context, req request) (clawportal.Response, error) {
	if err := ctx.Err(); err != nil {
		return clawportal.Response{}, err
	}
	p.requests = append(p.requests, req)
	if p.fail != nil {
		if res, err, handled := p.fail(req, len(p.requests)); handled {
			return res, err
		}
	}
	switch {
	case req.Method == "GET" && req.Path == "/login":
		return ok(loginPage), nil
	case req.Method == "POST" && req.Path == "/login":
		return ok("<p>willkommen</p>"), nil
	case req.Method == "GET" && req.Path == "/dashboard":
		return ok(dashboardPage), nil
	case req.Method == "GET" && req.Path == "/redeem":
		return ok(redeemPage), nil
	case req.Method == "POST" && req.Path == "/redeem":
		if p.rejected[p.submitted(req.Body)] {
			return ok(rejectedPage), nil
		}
		return ok("<p>danke</p>"), nil
	}
	return status(404), nil
}

// submitted rebuilds the code from the per-character fields of a redeem body.
func (p *fakePortal) submitted(body string) string {
	var ten, twelve strings.Builder
	for _, pair := range strings.Split(body, "&") {
		key, value, _ := strings.Cut(pair, "=")
		switch {
		case strings.HasPrefix(key, "code%5BcodeTen%5D"):
			ten.WriteString(value)
		case strings.HasPrefix(key, "code%5BcodeTwelve%5D"):
			twelve.WriteString(value)
		}
	}
	if ten.Len() > 0 {
		return ten.String()
	}
	return twelve.String()
}

func (p *fakePortal) Get(ctx context.Context, path string) (clawportal.Response, error) {
	return p.do(ctx, request{Method: "GET", Path: path})
}

func (p *fakePortal) PostForm(ctx context.Context, path string, body string) (clawportal.Response, error) {
	return p.do(ctx, request{Method: "POST", Path: path, Body: body})
}

func (p *fakePortal) count(method, path string) int {
	n := 0
	for _, req := range p.requests {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

type recorder struct {
	events []Event
}

func (r *recorder) Emit(_ context.Context, event Event) {
	r.events = append(r.events, event)
}

func (r *recorder) kinds() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = strings.TrimPrefix(fmt.Sprintf("%T", e), "redeemer.")
	}
	return out
}

type fixture struct {
	portal   *fakePortal
	clock    *chrono.Fake
	events   *recorder
	redeemer *Redeemer
}

func newFixture(portal *fakePortal, transport TransportPolicy) fixture {
	clock := chrono.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	events := &recorder{}
	r := New(Options{
		Session:     portal,
		Credentials: Credentials{Email: "user@example.com", Password: "hunter2"},
		Pacing:      DefaultPacing(),
		Transport:   transport,
		Clock:       clock,
		Sink:        events,
		Tel:         telemetry.NewSlogAPI(nil),
	})
	return fixture{portal: portal, clock: clock, events: events, redeemer: r}
}

func TestRunEndToEnd(t *testing.T) {
	f := newFixture(&fakePortal{rejected: map[string]bool{"BBBBBBBBBBBB": true}}, AbortOnTransportError)

	summary, err := f.redeemer.Run(context.Background(), []string{" AAAAAAAAAA ", "BBBBBBBBBBBB", "CCCCCCCCCC"})
	require.NoError(t, err)
	require.Equal(t, StateDone, summary.State)
	require.Equal(t, StateDone, f.redeemer.State())
	require.NotEmpty(t, summary.RunId)
	require.Equal(t, 3, summary.Total)
	require.Equal(t, 2, summary.Count(Accepted))
	require.Equal(t, 1, summary.Count(Rejected))

	results := []CodeResult{
		{Index: 0, Code: "AAAAAAAAAA", Outcome: AcceptedOutcome()},
		{Index: 1, Code: "BBBBBBBBBBBB", Outcome: RejectedOutcome("Code ungültig")},
		{Index: 2, Code: "CCCCCCCCCC", Outcome: AcceptedOutcome()},
	}
	if diff := cmp.Diff(results, summary.Results); diff != "" {
		t.Fatal(diff)
	}

	require.Equal(t, []time.Duration{
		time.Second, 15 * time.Second,
		3 * time.Second,
		time.Second,
	}, f.clock.Sleeps)
	require.Equal(t, summary.Started.Add(20*time.Second), summary.Finished)

	// initial read plus one per accepted code
	require.Equal(t, 3, f.portal.count("GET", "/dashboard"))
	require.Equal(t, 3, f.portal.count("GET", "/redeem"))
	require.Equal(t, 3, f.portal.count("POST", "/redeem"))
	require.Equal(t, &clawportal.ClawPoints{Total: 1250, Redeemable: 1000, Claimed: 250}, summary.Points)

	require.Equal(t, []string{
		"RunStarted", "LoginAttempt", "LoginResult", "PointsSnapshot",
		"CodeSubmitted", "PointsSnapshot",
		"CodeSubmitted",
		"CodeSubmitted", "PointsSnapshot",
		"Finished",
	}, f.events.kinds())
}

func TestRunPostsExactLoginBody(t *testing.T) {
	f := newFixture(&fakePortal{}, AbortOnTransportError)
	_, err := f.redeemer.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, request{
		Method: "POST",
		Path:   "/login",
		Body:   "email=user@example.com&password=hunter2&_csrf_token=csrf-1",
	}, f.portal.requests[1])
	require.Empty(t, f.clock.Sleeps)
}

func TestRunRedeemBodyCarriesToken(t *testing.T) {
	f := newFixture(&fakePortal{}, AbortOnTransportError)
	_, err := f.redeemer.Run(context.Background(), []string{"ABCDEFGHIJ"})
	require.NoError(t, err)

	var post request
	for _, req := range f.portal.requests {
		if req.Method == "POST" && req.Path == "/redeem" {
			post = req
		}
	}
	require.True(t, strings.HasSuffix(post.Body, "code%5B_token%5D=tok-1"), post.Body)
	require.Equal(t, "ABCDEFGHIJ", f.portal.submitted(post.Body))
}

func TestRunAborts(t *testing.T) {
	failWith := func(method, path string, res clawportal.Response, err error) func(request, int) (clawportal.Response, error, bool) {
		return func(req request, _ int) (clawportal.Response, error, bool) {
			if req.Method == method && req.Path == path {
				return res, err, true
			}
			return clawportal.Response{}, nil, false
		}
	}
	refused := errors.New("connection refused")

	table := []struct {
		name   string
		fail   func(request, int) (clawportal.Response, error, bool)
		codes  []string
		reason AbortReason
		stage  Stage
		index  int
		posts  int
	}{
		{
			name:   "no csrf token",
			fail:   failWith("GET", "/login", ok("<form></form>"), nil),
			reason: ReasonNoCsrfToken,
			stage:  StageLogin,
			index:  -1,
		},
		{
			name:   "login page status",
			fail:   failWith("GET", "/login", status(503), nil),
			reason: ReasonHttpFailure,
			stage:  StageLogin,
			index:  -1,
		},
		{
			name:   "invalid credentials",
			fail:   failWith("POST", "/login", ok("<p>"+clawportal.InvalidLoginText+"</p>"), nil),
			reason: ReasonInvalidCredentials,
			stage:  StageLogin,
			index:  -1,
			posts:  1,
		},
		{
			name:   "login status",
			fail:   failWith("POST", "/login", status(500), nil),
			reason: ReasonHttpFailure,
			stage:  StageLogin,
			index:  -1,
			posts:  1,
		},
		{
			name:   "login transport",
			fail:   failWith("GET", "/login", clawportal.Response{}, refused),
			reason: ReasonTransport,
			stage:  StageLogin,
			index:  -1,
		},
		{
			name:   "invalid code length",
			codes:  []string{"ABCDEFGHIJ", "SHORT", "ABCDEFGHIJ"},
			reason: ReasonInvalidCodeLength,
			stage:  StageRedeem,
			index:  1,
			posts:  2,
		},
		{
			name:   "no redeem token",
			fail:   failWith("GET", "/redeem", ok("<form></form>"), nil),
			codes:  []string{"ABCDEFGHIJ"},
			reason: ReasonNoRedeemToken,
			stage:  StageRedeem,
			index:  0,
			posts:  1,
		},
		{
			name:   "redeem status",
			fail:   failWith("POST", "/redeem", status(502), nil),
			codes:  []string{"ABCDEFGHIJ"},
			reason: ReasonHttpFailure,
			stage:  StageRedeem,
			index:  0,
			posts:  2,
		},
		{
			name:   "redeem transport",
			fail:   failWith("GET", "/redeem", clawportal.Response{}, refused),
			codes:  []string{"ABCDEFGHIJ"},
			reason: ReasonTransport,
			stage:  StageRedeem,
			index:  0,
			posts:  1,
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			f := newFixture(&fakePortal{fail: row.fail}, AbortOnTransportError)

			summary, err := f.redeemer.Run(context.Background(), row.codes)
			require.Error(t, err)

			var abort *AbortError
			require.ErrorAs(t, err, &abort)
			require.Equal(t, row.reason, abort.Reason)
			require.Equal(t, row.stage, abort.Stage)
			require.Equal(t, row.index, abort.Index)
			require.ErrorIs(t, err, reasonErrors[row.reason])
			require.Equal(t, row.stage == StageLogin, abort.IsAuth())

			require.Equal(t, StateAborted, summary.State)
			require.Same(t, abort, summary.Abort)
			require.Equal(t, row.posts, f.portal.count("POST", "/login")+f.portal.count("POST", "/redeem"))

			last := f.events.events[len(f.events.events)-1]
			require.Equal(t, Aborted{RunId: summary.RunId, Err: abort}, last)
		})
	}
}

func TestRunInvalidCodeLengthKeepsEarlierResults(t *testing.T) {
	f := newFixture(&fakePortal{}, AbortOnTransportError)
	summary, err := f.redeemer.Run(context.Background(), []string{"ABCDEFGHIJ", "TOOLONGFORANYFORM"})
	require.ErrorIs(t, err, ErrInvalidCodeLength)
	require.Len(t, summary.Results, 1)
	require.Equal(t, Accepted, summary.Results[0].Outcome.Kind)
}

func TestRunLoginFailureEmitsResult(t *testing.T) {
	f := newFixture(&fakePortal{fail: func(req request, _ int) (clawportal.Response, error, bool) {
		if req.Method == "POST" {
			return ok(clawportal.InvalidLoginText), nil, true
		}
		return clawportal.Response{}, nil, false
	}}, AbortOnTransportError)

	_, err := f.redeemer.Run(context.Background(), []string{"ABCDEFGHIJ"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, []string{"RunStarted", "LoginAttempt", "LoginResult", "Aborted"}, f.events.kinds())

	result := f.events.events[2].(LoginResult)
	require.False(t, result.Success)
	require.Equal(t, ReasonInvalidCredentials, result.Err.Reason)
	require.Equal(t, 0, f.portal.count("GET", "/dashboard"))
}

func TestRunPointsUnavailable(t *testing.T) {
	f := newFixture(&fakePortal{fail: func(req request, _ int) (clawportal.Response, error, bool) {
		if req.Path == "/dashboard" {
			return ok("<p>wartung</p>"), nil, true
		}
		return clawportal.Response{}, nil, false
	}}, AbortOnTransportError)

	summary, err := f.redeemer.Run(context.Background(), []string{"ABCDEFGHIJ"})
	require.NoError(t, err)
	require.Nil(t, summary.Points)
	require.Equal(t, 1, summary.Count(Accepted))
	require.Equal(t, []string{
		"RunStarted", "LoginAttempt", "LoginResult", "PointsUnavailable",
		"CodeSubmitted", "PointsUnavailable",
		"Finished",
	}, f.events.kinds())
}

func TestRunTransportPolicy(t *testing.T) {
	// the first redeem page load fails, every other request succeeds
	flaky := func() *fakePortal {
		failed := false
		return &fakePortal{fail: func(req request, _ int) (clawportal.Response, error, bool) {
			if req.Path == "/redeem" && req.Method == "GET" && !failed {
				failed = true
				return clawportal.Response{}, errors.New("connection reset"), true
			}
			return clawportal.Response{}, nil, false
		}}
	}
	codes := []string{"AAAAAAAAAA", "BBBBBBBBBB"}

	t.Run("abort", func(t *testing.T) {
		f := newFixture(flaky(), AbortOnTransportError)
		summary, err := f.redeemer.Run(context.Background(), codes)
		require.ErrorIs(t, err, ErrTransport)
		require.Empty(t, summary.Results)
	})

	t.Run("skip", func(t *testing.T) {
		f := newFixture(flaky(), SkipOnTransportError)
		summary, err := f.redeemer.Run(context.Background(), codes)
		require.NoError(t, err)
		require.Len(t, summary.Results, 2)
		require.True(t, summary.Results[0].Skipped())
		require.ErrorIs(t, summary.Results[0].SkipErr, ErrTransport)
		require.Equal(t, AcceptedOutcome(), summary.Results[1].Outcome)
		require.Equal(t, []time.Duration{3 * time.Second, time.Second}, f.clock.Sleeps)
		require.Contains(t, f.events.kinds(), "CodeSkipped")
	})
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	portal := &fakePortal{}
	portal.fail = func(req request, _ int) (clawportal.Response, error, bool) {
		if req.Method == "POST" && req.Path == "/redeem" {
			cancel()
		}
		return clawportal.Response{}, nil, false
	}
	f := newFixture(portal, SkipOnTransportError)

	summary, err := f.redeemer.Run(ctx, []string{"AAAAAAAAAA", "BBBBBBBBBB"})
	require.ErrorIs(t, err, ErrCancelled)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StateAborted, summary.State)
	require.Len(t, summary.Results, 1)
	require.Empty(t, f.clock.Sleeps)
}

func TestParseTransportPolicy(t *testing.T) {
	table := []struct {
		input    string
		expected TransportPolicy
		err      bool
	}{
		{input: "", expected: AbortOnTransportError},
		{input: "abort", expected: AbortOnTransportError},
		{input: " Skip ", expected: SkipOnTransportError},
		{input: "retry", err: true},
	}
	for _, row := range table {
		policy, err := ParseTransportPolicy(row.input)
		if row.err {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, row.expected, policy)
	}
}

func TestAbortErrorMessage(t *testing.T) {
	err := &AbortError{Reason: ReasonNoRedeemToken, Stage: StageRedeem, Index: 2, Code: "ABCDEFGHIJ"}
	require.Equal(t, `redeem: no form token on redeem page (code #3 "ABCDEFGHIJ")`, err.Error())

	cause := errors.New("boom")
	err = &AbortError{Reason: ReasonTransport, Stage: StageLogin, Index: -1, Err: cause}
	require.Equal(t, "login: request failed: boom", err.Error())
	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, ErrTransport)
}

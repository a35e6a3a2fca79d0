package clawportal

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"clawredeem/internal/components/assert"
	"clawredeem/internal/components/telemetry"
	"clawredeem/pkg/htmlquery"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_session_get  = "session.get"
	report_session_post = "session.post-form"
)

const formContentType = "application/x-www-form-urlencoded"

// Endpoints are the portal paths, relative to the base url.
type Endpoints struct {
	Login      string `json:"login"`
	Dashboard  string `json:"dashboard"`
	RedeemPage string `json:"redeem_page"`
	Redeem     string `json:"redeem"`
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:      "/login",
		Dashboard:  "/dashboard",
		RedeemPage: "/redeem",
		Redeem:     "/redeem",
	}
}

// WithDefaults fills every empty path from DefaultEndpoints.
func (e Endpoints) WithDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.Login == "" {
		e.Login = d.Login
	}
	if e.Dashboard == "" {
		e.Dashboard = d.Dashboard
	}
	if e.RedeemPage == "" {
		e.RedeemPage = d.RedeemPage
	}
	if e.Redeem == "" {
		e.Redeem = d.Redeem
	}
	return e
}

// Response is what the workflow needs to know about one HTTP exchange.
type Response struct {
	StatusCode int
	Status     string
	Body       string
}

func (r Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Query parses the body as HTML.
func (r Response) Query() (htmlquery.Query, error) {
	return htmlquery.ParseString(r.Body)
}

type SessionOptions struct {
	BaseUrl string
	// RequestsPerSecond caps the request rate, 0 disables the cap.
	RequestsPerSecond float64
	// Timeout defaults to 30 seconds.
	Timeout time.Duration
	// Output receives every rendered exchange when set.
	Output telemetry.MessageOutput
}

// Session is the cookie-bearing client of one logged in (or logging in)
// account. It is not safe for concurrent use.
type Session struct {
	baseUrl *url.URL
	http    *resty.Client
	tel     telemetry.API
}

func NewSession(opts SessionOptions, tel telemetry.API) (*Session, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)
	assert.NonNegative("requests per second", opts.RequestsPerSecond)

	tel = telemetry.NewScopedAPI("clawportal", tel)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(opts.BaseUrl, "/"))
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetHeader("accept", formContentType)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	httpClient.SetTimeout(timeout)

	if opts.RequestsPerSecond > 0 {
		// burst of 1 keeps requests evenly spaced instead of letting them bunch up
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	return &Session{
		baseUrl: baseUrl,
		http:    httpClient,
		tel:     tel,
	}, nil
}

func fromResty(res *resty.Response) Response {
	return Response{
		StatusCode: res.StatusCode(),
		Status:     res.Status(),
		Body:       string(res.Body()),
	}
}

// endpoint is the absolute url of a portal path, as it appears in reports.
func (s *Session) endpoint(path string) string {
	return s.baseUrl.JoinPath(path).String()
}

// Get fetches a page. Only transport failures are errors, any HTTP status is
// returned as a Response.
func (s *Session) Get(ctx context.Context, path string) (Response, error) {
	res, err := s.http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		s.tel.ReportBroken(report_session_get, fmt.Errorf("fetch: %w", err), s.endpoint(path))
		return Response{}, fmt.Errorf("GET %s: %w", path, err)
	}
	return fromResty(res), nil
}

// PostForm posts an already encoded form body.
func (s *Session) PostForm(ctx context.Context, path string, body string) (Response, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("content-type", formContentType).
		SetBody(body).
		Post(path)
	if err != nil {
		s.tel.ReportBroken(report_session_post, fmt.Errorf("submit: %w", err), s.endpoint(path))
		return Response{}, fmt.Errorf("POST %s: %w", path, err)
	}
	return fromResty(res), nil
}

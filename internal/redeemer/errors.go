package redeemer

import (
	"errors"
	"fmt"

	"clawredeem/internal/scrapers/clawportal"
)

// AbortReason is why a run stopped before processing every code.
type AbortReason int

const (
	ReasonNoCsrfToken AbortReason = iota
	ReasonHttpFailure
	ReasonInvalidCredentials
	ReasonNoRedeemToken
	ReasonInvalidCodeLength
	ReasonTransport
	ReasonCancelled
)

var (
	ErrNoCsrfToken        = errors.New("no csrf token on login page")
	ErrHttpFailure        = errors.New("portal answered with a non-success status")
	ErrInvalidCredentials = errors.New("e-mail or password is invalid")
	ErrNoRedeemToken      = errors.New("no form token on redeem page")
	ErrInvalidCodeLength  = clawportal.ErrInvalidCodeLength
	ErrTransport          = errors.New("request failed")
	ErrCancelled          = errors.New("run cancelled")
)

var reasonErrors = map[AbortReason]error{
	ReasonNoCsrfToken:        ErrNoCsrfToken,
	ReasonHttpFailure:        ErrHttpFailure,
	ReasonInvalidCredentials: ErrInvalidCredentials,
	ReasonNoRedeemToken:      ErrNoRedeemToken,
	ReasonInvalidCodeLength:  ErrInvalidCodeLength,
	ReasonTransport:          ErrTransport,
	ReasonCancelled:          ErrCancelled,
}

func (r AbortReason) String() string {
	switch r {
	case ReasonNoCsrfToken:
		return "no-csrf-token"
	case ReasonHttpFailure:
		return "http-failure"
	case ReasonInvalidCredentials:
		return "invalid-credentials"
	case ReasonNoRedeemToken:
		return "no-redeem-token"
	case ReasonInvalidCodeLength:
		return "invalid-code-length"
	case ReasonTransport:
		return "transport"
	case ReasonCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Stage is the part of the run a failure happened in.
type Stage string

const (
	StageLogin  Stage = "login"
	StagePoints Stage = "points"
	StageRedeem Stage = "redeem"
)

// AbortError is the only error Run returns. It matches its reason's sentinel
// (ErrNoRedeemToken, ...) and the underlying cause with errors.Is.
type AbortError struct {
	Reason AbortReason
	Stage  Stage
	// Index is the position of the code being processed, -1 outside the loop.
	Index int
	Code  string
	Err   error
}

func (e *AbortError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Stage, reasonErrors[e.Reason])
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s (code #%d %q)", msg, e.Index+1, e.Code)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

func (e *AbortError) Unwrap() []error {
	out := []error{reasonErrors[e.Reason]}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// IsAuth reports whether the run never got past logging in.
func (e *AbortError) IsAuth() bool {
	return e.Stage == StageLogin
}

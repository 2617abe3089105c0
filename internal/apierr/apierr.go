package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel taxonomy for the escalation core. Services wrap these with
// context; handlers map them to HTTP statuses via Status().
var (
	// ErrValidation covers malformed or missing required fields, rejected
	// before any write reaches the store.
	ErrValidation = errors.New("validation failed")
	// ErrConflict covers lost claim races, duplicate unique-key inserts and
	// any condition recoverable by re-reading current state.
	ErrConflict = errors.New("conflict")
	// ErrStaleFallback is the specific conflict raised when an AI answer is
	// committed against a question that is no longer pending or already has
	// answers. Callers must discard the generated content.
	ErrStaleFallback = fmt.Errorf("stale fallback: %w", ErrConflict)
	// ErrUpstreamUnavailable covers generative-provider outages and timeouts.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrNotConfigured is returned by the generative provider when no API key
	// is present. Never retried.
	ErrNotConfigured = fmt.Errorf("provider not configured: %w", ErrUpstreamUnavailable)
	// ErrNotFound covers operations on a missing question or answer.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized covers missing or invalid identity.
	ErrUnauthorized = errors.New("unauthorized")
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Status maps a domain error onto the HTTP status a handler should return.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status != 0 {
			return apiErr.Status
		}
		return http.StatusInternalServerError
	}
}

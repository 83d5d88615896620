package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure classes surfaced by Platform implementations.
var (
	ErrRateLimited      = errors.New("rate limited")
	ErrPermissionDenied = errors.New("permission denied")
	ErrServerError      = errors.New("remote server error")
)

// APIError wraps a failed remote call with its HTTP status and failure class.
//
// errors.Is(err, ErrRateLimited) (etc.) matches through Kind.
type APIError struct {
	Op     string
	Status int
	Detail string
	Kind   error // one of the Err* classes, or nil for unclassified failures
	Err    error // underlying transport error, if any
}

func (e *APIError) Error() string {
	msg := e.Op
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// ClassifyStatus maps an HTTP status to a failure class.
// It returns nil for 2xx and for statuses without a dedicated class.
func ClassifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrPermissionDenied
	case status >= 500:
		return ErrServerError
	default:
		return nil
	}
}

// Class names the failure class of err for logs and history.
func Class(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrServerError):
		return "server_error"
	default:
		return "unexpected"
	}
}

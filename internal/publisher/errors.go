package publisher

import (
	"fmt"
	"time"

	"xposter/internal/transport"
)

// Error is returned when a message could not be published.
//
// Class is one of transport.Class's names; Err is the last platform error.
type Error struct {
	Attempts int
	Class    string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("publish failed after %d attempt(s) [%s]: %v", e.Attempts, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Base delays before doubling.
const (
	RateLimitBackoff   = 60 * time.Second
	ServerErrorBackoff = 30 * time.Second
	DefaultBackoff     = 10 * time.Second
)

// backoff returns the wait after a failed attempt, or false when err must not
// be retried.
func backoff(err error, attempt int) (time.Duration, bool) {
	var base time.Duration
	switch transport.Class(err) {
	case "permission_denied":
		return 0, false
	case "rate_limited":
		base = RateLimitBackoff
	case "server_error":
		base = ServerErrorBackoff
	default:
		base = DefaultBackoff
	}
	return base << uint(attempt), true
}

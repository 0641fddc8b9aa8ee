package transport

import (
	"errors"
	"fmt"
)

// ErrAuthExpired reports that the server rejected the session token. The
// transport has already cleared the session and asked the navigator for the
// sign-in surface; callers should not surface this as an ordinary failure.
var ErrAuthExpired = errors.New("session expired")

// ErrNotFound reports a 404 from the server.
var ErrNotFound = errors.New("not found")

// ServerError is a 5xx that survived the retry budget.
type ServerError struct{ Status int }

func (e *ServerError) Error() string { return fmt.Sprintf("server status %d", e.Status) }

// NetworkError is a connection or timeout failure that survived the retry
// budget, or a success response whose body could not be decoded. Retryable
// from the caller's point of view.
type NetworkError struct{ Err error }

func (e *NetworkError) Error() string { return "network: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is any other non-2xx response, typically bad input echoed back by
// the server.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api status %d", e.Status)
	}
	return fmt.Sprintf("api status %d: %s", e.Status, e.Detail)
}

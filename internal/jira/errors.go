package jira

import (
	"errors"
	"fmt"
)

// Jira transport errors.
var (
	// ErrRateLimited indicates the API answered 429.
	ErrRateLimited = errors.New("jira: rate limited")

	// ErrExhausted indicates the retry budget for a request was consumed
	// without a successful response.
	ErrExhausted = errors.New("jira: retry budget exhausted")
)

// StatusError represents a non-success HTTP status from the Jira API.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jira: unexpected status %d (URL: %s)", e.Code, e.URL)
}

// TransportError represents a failure below the HTTP layer: timeouts,
// connection resets, or a body that could not be decoded.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("jira: %s failed for %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if the error indicates the resource does not exist.
// Not-found responses are never retried; callers skip the resource.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == 404
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the error is worth another attempt: server-side
// failures and transport failures qualify, client errors do not.
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 && statusErr.Code <= 599
	}
	return false
}

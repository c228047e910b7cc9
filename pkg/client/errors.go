package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassConfig represents missing or incomplete credentials.
	// No network call is made.
	ErrorClassConfig ErrorClass = "config"

	// ErrorClassAuth represents 401/403 responses. Stale keys rarely
	// self-heal, so these are never retried.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassNotFound represents 404 on a single-resource read.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRequest represents other 4xx client errors.
	ErrorClassRequest ErrorClass = "request"

	// ErrorClassTransport represents connection and timeout errors.
	ErrorClassTransport ErrorClass = "transport"
)

// APIError represents an NCM API error with request context attached.
type APIError struct {
	Class      ErrorClass
	StatusCode int
	Endpoint   string
	Attempts   int
	Message    string
	Body       []byte
	Err        error

	// RetryAfter carries the server-requested cooldown from a 429
	// Retry-After header. Zero when the server gave no hint.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ncm %s error on %s (status %d, attempts %d): %s: %v",
			e.Class, e.Endpoint, e.StatusCode, e.Attempts, e.Message, e.Err)
	}
	return fmt.Sprintf("ncm %s error on %s (status %d, attempts %d): %s",
		e.Class, e.Endpoint, e.StatusCode, e.Attempts, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// PartialError reports a walk or chunked walk that terminated early. The
// records gathered before the failure are returned alongside it; callers
// distinguish "complete" from "partial" by checking for this type.
type PartialError struct {
	Endpoint string
	Fetched  int
	Err      error
}

// Error implements the error interface.
func (e *PartialError) Error() string {
	return fmt.Sprintf("ncm partial result on %s (%d records fetched): %v",
		e.Endpoint, e.Fetched, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PartialError) Unwrap() error {
	return e.Err
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassRateLimit, ErrorClassServer, ErrorClassTransport:
		return true
	default:
		// config, auth, not_found, and request errors don't self-heal
		return false
	}
}

package telegram

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

// ErrorClass represents a classification of gateway errors.
type ErrorClass string

const (
	// ErrorClassAuth represents 401 responses: the gateway session is no
	// longer authorized. Fatal to the whole run.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassForbidden represents 403/404 responses: the channel cannot
	// be resolved or its participant list is hidden. Fatal to the run.
	ErrorClassForbidden ErrorClass = "forbidden"

	// ErrorClassRateLimit represents 429 responses (Telegram FLOOD_WAIT
	// surfaced by the gateway).
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassClient represents remaining 4xx client errors.
	ErrorClassClient ErrorClass = "client"
)

// APIError represents a gateway error with its classification and, for
// rate-limit responses, the server-specified backoff hint.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	RetryAfter time.Duration
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("gateway %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error aborts the whole enumeration run
// rather than a single filter. Lost authorization and unresolvable or
// forbidden channels cannot be recovered by retrying other filters.
func (e *APIError) Fatal() bool {
	return e.ErrorClass == ErrorClassAuth || e.ErrorClass == ErrorClassForbidden
}

// IsFatal reports whether err carries a fatal APIError.
func IsFatal(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Fatal()
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassRateLimit:
		// FLOOD_WAIT clears after the server-specified delay
		return true
	case ErrorClassServer:
		return true
	case ErrorClassNetwork:
		return true
	default:
		// auth, forbidden and other 4xx do not heal on retry
		return false
	}
}

// classifyStatus categorizes an HTTP status code.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == 401:
		return ErrorClassAuth
	case statusCode == 403 || statusCode == 404:
		return ErrorClassForbidden
	case statusCode == 429:
		return ErrorClassRateLimit
	case statusCode >= 500:
		return ErrorClassServer
	case statusCode >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// Package apierr centralizes error handling for the OpenAI-backed
// generators (script, speech, images). Provider errors are classified
// into package sentinels at the client boundary, and every network call
// goes through RetryWithBackoff with IsRetryable as its predicate.
//
// Callers check outcomes with errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import "errors"

// Sentinel errors for API interaction failures.
var (
	// ErrRateLimit indicates a temporary rate limit (retryable with backoff).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the account quota ran out. Unlike
	// ErrRateLimit this needs user action (billing) and is not retried.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request or context deadline expired.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates the API key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrEmptyResponse indicates the API succeeded but returned no usable
	// payload (no choices, empty content).
	ErrEmptyResponse = errors.New("empty API response")
)

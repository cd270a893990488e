// Package apierr provides the error sentinels and retry loop shared by
// clients of the separation service. Transport failures are classified into
// these sentinels at the client boundary.
//
// Callers check with errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for API interaction failures.
var (
	// ErrRateLimit indicates the service rejected the request for load reasons (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the account quota was exceeded (not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out or the service was temporarily unavailable.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates authentication failed (invalid or missing token).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")
)

// FromStatus maps an HTTP status code and service message to a sentinel-wrapped error.
// Unknown statuses are returned unwrapped with the status code in the message.
func FromStatus(statusCode int, msg string) error {
	switch statusCode {
	case http.StatusTooManyRequests:
		// Quota exhaustion needs user action; plain throttling does not.
		if strings.Contains(msg, "quota") || strings.Contains(msg, "billing") {
			return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
		}
		return fmt.Errorf("%s: %w", msg, ErrRateLimit)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, ErrAuthFailed)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound,
		http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w", msg, ErrBadRequest)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("HTTP %d: %s: %w", statusCode, msg, ErrTimeout)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}

// IsRetryable reports whether err is transient and worth another attempt.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout)
}

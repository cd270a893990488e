package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryConfig holds retry parameters for calls to the separation service.
//
// Invalid values are normalized:
//   - MaxRetries < 0 becomes 0 (single attempt)
//   - BaseDelay <= 0 becomes 1ms
//   - MaxDelay <= 0 becomes BaseDelay
//
// OnRetry, when set, is called before each wait with the upcoming attempt
// number (1-based), the delay about to be waited, and the error that caused it.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	OnRetry    func(attempt int, delay time.Duration, err error)
}

func (c *RetryConfig) normalize() {
	c.MaxRetries = max(c.MaxRetries, 0)
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay
	}
}

// next returns the wait before the next attempt: the doubled backoff, or the
// server's Retry-After hint when that is longer. Never exceeds MaxDelay.
func (c *RetryConfig) next(backoff time.Duration, err error) time.Duration {
	wait := backoff
	if hint, ok := RetryAfter(err); ok && hint > wait {
		wait = hint
	}
	return min(wait, c.MaxDelay)
}

// RetryWithBackoff executes fn, retrying while shouldRetry returns true.
// Waits double from BaseDelay up to MaxDelay; a Retry-After hint attached to
// the error (see WithRetryAfter) lengthens the wait. Returns the result of
// the last attempt, or ctx.Err() if the context ends during a wait.
func RetryWithBackoff[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	cfg.normalize()

	var zero T
	backoff := cfg.BaseDelay
	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !shouldRetry(err) {
			return zero, err
		}
		if attempt == cfg.MaxRetries {
			return zero, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, err)
		}

		wait := cfg.next(backoff, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
		backoff = min(backoff*2, cfg.MaxDelay)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryAfterError carries a server-requested delay alongside the cause.
type retryAfterError struct {
	err   error
	after time.Duration
}

func (e *retryAfterError) Error() string { return e.err.Error() }
func (e *retryAfterError) Unwrap() error { return e.err }

// WithRetryAfter attaches a server-requested delay to err.
// A non-positive delay returns err unchanged.
func WithRetryAfter(err error, after time.Duration) error {
	if err == nil || after <= 0 {
		return err
	}
	return &retryAfterError{err: err, after: after}
}

// RetryAfter returns the delay attached by WithRetryAfter, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var ra *retryAfterError
	if errors.As(err, &ra) {
		return ra.after, true
	}
	return 0, false
}

// ParseRetryAfter reads a Retry-After header value, either delay-seconds or
// an HTTP date relative to now. Returns 0 when absent or unparsable.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(at.Sub(now), 0)
	}
	return 0
}

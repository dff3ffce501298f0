package provider

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultMaxAttempts is the total number of calls, first attempt included.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the wait before the first retry.
	DefaultBaseDelay = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy configures Retry. Zero values are replaced with defaults.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Classify decides whether a failure is transient. Defaults to IsRetryable.
	Classify func(error) bool
	// Sleep defaults to a context aware timer; tests override it.
	Sleep SleepFunc
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.Classify == nil {
		p.Classify = IsRetryable
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// Delay returns the backoff before the retry that follows attempt (zero based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.withDefaults().BaseDelay << attempt
}

// Retry runs fn until it succeeds, fails with a non-retryable error, or the
// attempts are exhausted. The error of the last attempt is returned as is.
// When the wait between attempts is interrupted, the returned error wraps both
// the last attempt's error and the interruption.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.withDefaults()

	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == policy.MaxAttempts-1 || !policy.Classify(err) {
			return zero, err
		}
		if sleepErr := policy.Sleep(ctx, policy.Delay(attempt)); sleepErr != nil {
			return zero, fmt.Errorf("%w (retry aborted: %w)", err, sleepErr)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

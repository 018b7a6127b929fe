package storage

import (
	"context"
	"fmt"
	"time"
)

// Write retry reference policy: transient lock contention from a
// concurrent writer is retried at a fixed interval; reads never retry.
const (
	DefaultWriteAttempts   = 5
	DefaultWriteRetryDelay = 500 * time.Millisecond
)

// WithRetry runs op up to attempts times, sleeping delay between tries.
// isTransient decides whether a failure is worth another attempt;
// non-transient errors propagate immediately. After the budget is spent
// the last error is wrapped in ErrUnavailable.
func WithRetry(ctx context.Context, attempts int, delay time.Duration, isTransient func(error) bool, op func() error) error {
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if isTransient == nil || !isTransient(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %d attempts exhausted: %v", ErrUnavailable, attempts, lastErr)
}

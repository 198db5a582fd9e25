package agent

import (
	"context"
	"fmt"
	"time"

	"osvscan/internal/telemetry"
)

const maxRetries = 3

// withRetry runs fn up to maxRetries+1 times with exponential backoff. It is
// wrapped around each provider round-trip, not the whole tool loop, so a
// transient API failure does not replay completed tool calls.
func withRetry(ctx context.Context, backoffFn func(int) time.Duration, fn func() error) error {
	if backoffFn == nil {
		backoffFn = func(i int) time.Duration {
			return time.Duration(1<<uint(i-1)) * time.Second
		}
	}

	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			waitTime := backoffFn(i)
			telemetry.LogInfo("Retrying agent call", "retry", i, "wait", waitTime, "error", lastErr)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

package source

import (
	"context"
	"time"

	"github.com/avast/retry-go"
)

// withRetry runs fn up to maxRetries+1 times with exponential backoff. The
// last error is returned once attempts run out or ctx is done.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, onRetry func(uint, error), fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if onRetry == nil {
		onRetry = func(uint, error) {}
	}

	return retry.Do(
		func() error { return fn(ctx) },
		retry.Context(ctx),
		retry.Attempts(uint(maxRetries)+1),
		retry.Delay(baseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(onRetry),
	)
}

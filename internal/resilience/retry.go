// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

import (
	"context"
	"time"
)

// Retry invokes op up to maxAttempts+1 times on the calling goroutine. After
// the n-th failed attempt (0-based) it sleeps baseDelay*(n+1). Errors for
// which stop returns true are returned immediately. Context cancellation
// during a delay ends the loop with the last error.
func Retry[T any](ctx context.Context, maxAttempts int, baseDelay time.Duration, stop func(error) bool, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if maxAttempts < 0 {
		maxAttempts = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if stop != nil && stop(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}
		if err := Sleep(ctx, baseDelay*time.Duration(attempt+1)); err != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

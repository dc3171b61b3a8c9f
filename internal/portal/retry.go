// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package portal

import (
	"context"
	"fmt"
	"time"

	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/resilience"
)

// fireAndForgetTimeout bounds a detached best-effort call.
const fireAndForgetTimeout = 15 * time.Second

// Retry runs op up to maxAttempts+1 times with a linear backoff of
// baseDelay*(attempt+1). Permanent errors (unauthorized, fatal, auth, blank
// link, context) are returned after a single call.
func Retry[T any](ctx context.Context, maxAttempts int, baseDelay time.Duration, op func(context.Context) (T, error)) (T, error) {
	return resilience.Retry(ctx, maxAttempts, baseDelay, func(err error) bool {
		if IsPermanent(err) {
			return true
		}
		recordRetry(err)
		return false
	}, op)
}

// FireAndForget runs op in the background and only logs its failure. The
// caller's cancellation does not abort op, but its request id is kept.
func FireAndForget(ctx context.Context, name string, op func(context.Context) error) {
	detached := context.WithoutCancel(ctx)
	go func() {
		logger := stblog.WithComponentFromContext(detached, "portal").With().Str(stblog.FieldAction, name).Logger()
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Str("panic", fmt.Sprint(r)).Msg("best-effort call panicked")
			}
		}()

		callCtx, cancel := context.WithTimeout(detached, fireAndForgetTimeout)
		defer cancel()
		if err := op(callCtx); err != nil {
			logger.Debug().Err(err).Msg("best-effort call failed")
		}
	}()
}

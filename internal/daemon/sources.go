// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"time"

	"github.com/ManuGH/stbportal/internal/domain"
	"github.com/ManuGH/stbportal/internal/portal"
)

// retryingSource wraps the portal reads used by the caches in the bounded
// retry policy. Writes and analytics are not retried.
type retryingSource struct {
	api      *portal.API
	attempts int
	delay    time.Duration
}

func (r retryingSource) Channels(ctx context.Context) ([]domain.Channel, error) {
	return portal.Retry(ctx, r.attempts, r.delay, r.api.Channels)
}

func (r retryingSource) Genres(ctx context.Context) ([]domain.Genre, error) {
	return portal.Retry(ctx, r.attempts, r.delay, r.api.Genres)
}

func (r retryingSource) ShortEPG(ctx context.Context, channelID string) ([]domain.Program, error) {
	return portal.Retry(ctx, r.attempts, r.delay, func(ctx context.Context) ([]domain.Program, error) {
		return r.api.ShortEPG(ctx, channelID)
	})
}

func (r retryingSource) EPGForDay(ctx context.Context, channelID string, day time.Time) ([]domain.Program, error) {
	return portal.Retry(ctx, r.attempts, r.delay, func(ctx context.Context) ([]domain.Program, error) {
		return r.api.EPGForDay(ctx, channelID, day)
	})
}

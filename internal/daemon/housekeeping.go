// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/playback"
	"github.com/ManuGH/stbportal/internal/portal"
)

const guideLoadConcurrency = 4

// housekeepingLoop reloads channels, refreshes the guide of the playing
// channel and flushes favorites, once immediately and then on every tick.
// Only fatal portal errors end the loop.
func (e *Engine) housekeepingLoop(ctx context.Context) error {
	interval := e.cfg.Favorites.FlushInterval
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := e.Housekeep(ctx); err != nil && portal.IsFatal(err) {
			e.reportFatal(err)
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Housekeep runs one housekeeping pass. Recoverable errors are logged and
// the first one is returned after all steps ran.
func (e *Engine) Housekeep(ctx context.Context) error {
	logger := stblog.WithComponentFromContext(ctx, "housekeeping")
	var errs []error
	step := func(name string, err error) bool {
		if err == nil {
			return true
		}
		if portal.IsFatal(err) {
			errs = append([]error{err}, errs...)
			return false
		}
		if ctx.Err() == nil {
			logger.Warn().Err(err).Str(stblog.FieldAction, name).Msg("housekeeping step failed")
		}
		errs = append(errs, err)
		return true
	}

	if e.channelsDue() {
		_, err := e.directory.Refresh(ctx)
		if !step("refresh_channels", err) {
			return errs[0]
		}
	}

	if ch, ok := playback.ChannelOf(e.controller.Current()); ok {
		if !step("refresh_guide", e.guide.EnsureFreshLoad(ctx, ch.ID)) {
			return errs[0]
		}
	}

	if e.overlay.Len() > 0 && e.directory.Loaded() {
		if !step("flush_favorites", e.overlay.Flush(ctx, e.api, e.directory.ServerFavoriteIDs())) {
			return errs[0]
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (e *Engine) channelsDue() bool {
	if !e.directory.Loaded() {
		return true
	}
	return e.clk.Now().Sub(e.directory.FetchedAt()) >= e.cfg.Channels.RefreshInterval
}

// LoadAllGuides loads the near-term guide of every known channel with
// bounded concurrency. Channels without a guide are not an error.
func (e *Engine) LoadAllGuides(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(guideLoadConcurrency)
	for _, ch := range e.directory.Channels() {
		id := ch.ID
		g.Go(func() error {
			err := e.guide.EnsureFreshLoad(gctx, id)
			if err != nil && !portal.IsFatal(err) {
				logger := stblog.WithComponentFromContext(gctx, "housekeeping")
				logger.Warn().
					Err(err).Str(stblog.FieldChannelID, id).Msg("guide load failed")
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}


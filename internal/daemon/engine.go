// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package daemon owns the engine lifecycle: it constructs every component
// once and runs the periodic tasks under one errgroup.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ManuGH/stbportal/internal/cache"
	"github.com/ManuGH/stbportal/internal/channels"
	"github.com/ManuGH/stbportal/internal/clock"
	"github.com/ManuGH/stbportal/internal/config"
	"github.com/ManuGH/stbportal/internal/epg"
	"github.com/ManuGH/stbportal/internal/events"
	"github.com/ManuGH/stbportal/internal/favorites"
	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/playback"
	"github.com/ManuGH/stbportal/internal/portal"
	"github.com/ManuGH/stbportal/internal/seek"
	"github.com/ManuGH/stbportal/internal/store"
)

// Options supply the collaborators the engine does not build itself.
type Options struct {
	// Player is the media player driven by playback and seeking. Required.
	Player playback.MediaPlayer
	Clock  clock.Clock
	// HTTPClient overrides the portal transport.
	HTTPClient *http.Client
	// OnMessage receives operator messages from the notification feed.
	OnMessage func(portal.Event)
	// OnFatal is called once for an error that needs user action
	// (access denied, registration blocked).
	OnFatal func(error)
}

// Engine is the explicit context object holding every component.
type Engine struct {
	cfg    config.AppConfig
	clk    clock.Clock
	logger zerolog.Logger

	store    store.Store
	cache    cache.Cache
	closers  []io.Closer
	client   *portal.Client
	sessions *portal.Sessions
	api      *portal.API

	overlay    *favorites.Overlay
	directory  *channels.Directory
	guide      *epg.Guide
	controller *playback.Controller
	seek       *seek.Engine
	poller     *events.Poller

	onFatal   func(error)
	fatalOnce sync.Once

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// New builds the engine from cfg. ctx bounds backend connection checks.
func New(ctx context.Context, cfg config.AppConfig, opts Options) (*Engine, error) {
	if opts.Player == nil {
		return nil, ErrMissingPlayer
	}
	e := &Engine{
		cfg:     cfg,
		clk:     clock.Or(opts.Clock),
		logger:  stblog.WithComponent("engine"),
		onFatal: opts.OnFatal,
	}

	loc, err := config.Location(cfg.EPG)
	if err != nil {
		return nil, fmt.Errorf("epg location: %w", err)
	}

	st, err := store.Open(store.Config{Backend: cfg.Store.Backend, Path: cfg.Store.Path, DataDir: cfg.DataDir})
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	e.store = st
	e.closers = append(e.closers, st)

	if err := e.openCache(ctx); err != nil {
		_ = e.close()
		return nil, err
	}

	deviceID, err := resolveDeviceID(ctx, cfg.Portal.DeviceID, st)
	if err != nil {
		_ = e.close()
		return nil, err
	}

	e.client = portal.NewClient(cfg.Portal.URL, portal.Options{
		Timeout:          cfg.Portal.Timeout,
		UserAgent:        cfg.Portal.UserAgent,
		Timezone:         cfg.Portal.Timezone,
		Language:         cfg.Portal.Language,
		STBType:          cfg.Portal.STBType,
		RateLimit:        rate.Limit(cfg.Portal.RateLimit),
		RateLimitBurst:   cfg.Portal.RateLimitBurst,
		BreakerThreshold: cfg.Portal.BreakerThreshold,
		BreakerReset:     cfg.Portal.BreakerReset,
		HTTPClient:       opts.HTTPClient,
	})
	e.sessions = portal.NewSessions(e.client, st, deviceID)
	e.api = portal.NewAPI(e.client, e.sessions, loc)

	src := retryingSource{api: e.api, attempts: cfg.Portal.MaxAttempts, delay: cfg.Portal.RetryBaseDelay}
	e.overlay = favorites.NewOverlay(e.clk)
	e.directory = channels.NewDirectory(src, e.cache, e.overlay, e.clk)
	e.guide = epg.NewGuide(src, e.clk, loc)
	e.controller = playback.NewController(
		playback.NewResolver(e.api, cfg.Portal.LiveCreateLink),
		opts.Player, e.guide, e.api, e.clk)
	e.seek = seek.NewEngine(e.controller, e.clk, seek.Options{ScrubSpeed: cfg.Seek.ScrubSpeed, Tick: cfg.Seek.Tick})
	e.poller = events.NewPoller(e.api, cfg.Events.PollInterval,
		events.Handlers{Message: opts.OnMessage},
		e.directory,
		events.InvalidatorFunc(e.guide.MarkAllStale),
		events.InvalidatorFunc(e.overlay.Reset),
	)

	e.logger.Info().
		Str(stblog.FieldDeviceID, stblog.MaskDeviceID(deviceID)).
		Str(stblog.FieldBaseURL, e.client.Endpoint()).
		Str("store", cfg.Store.Backend).
		Str("cache", cfg.Cache.Backend).
		Msg("engine constructed")
	return e, nil
}

func (e *Engine) openCache(ctx context.Context) error {
	switch e.cfg.Cache.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     e.cfg.Cache.RedisAddr,
			Password: e.cfg.Cache.RedisPassword,
			DB:       e.cfg.Cache.RedisDB,
			Prefix:   e.cfg.Cache.RedisPrefix,
		}, stblog.WithComponent("cache"))
		if err != nil {
			return fmt.Errorf("open redis cache: %w", err)
		}
		e.cache = rc
		e.closers = append(e.closers, rc)
	case "none":
		e.cache = cache.NewNoOpCache()
	default:
		mc := cache.NewMemoryCache(e.cfg.Cache.CleanupInterval, e.clk)
		e.cache = mc
		e.closers = append(e.closers, mc)
	}
	return nil
}

// resolveDeviceID prefers the configured id, then the id of a persisted
// session, then a fresh one.
func resolveDeviceID(ctx context.Context, configured string, st store.Store) (string, error) {
	if configured != "" {
		id, ok := portal.NormalizeDeviceID(configured)
		if !ok {
			return "", fmt.Errorf("invalid device id %q", stblog.MaskDeviceID(configured))
		}
		return id, nil
	}
	if saved, ok, err := st.Load(ctx); err == nil && ok && saved.DeviceID != "" {
		return saved.DeviceID, nil
	}
	return portal.NewDeviceID(), nil
}

// Start restores the persisted session and launches the housekeeping
// loop, the notification poller and the seek tick. It does not block.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.started = true
	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	e.cancel, e.group = cancel, g
	e.mu.Unlock()

	if restored, err := e.sessions.Restore(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("failed to restore session")
	} else if restored {
		e.logger.Info().Msg("restored persisted session")
	}

	g.Go(func() error { return e.housekeepingLoop(gctx) })
	if e.cfg.Events.Enabled {
		g.Go(func() error {
			err := e.poller.Run(gctx)
			e.reportFatal(err)
			return err
		})
	}
	g.Go(func() error { return e.seek.Run(gctx) })

	e.logger.Info().
		Dur("housekeeping_interval", e.cfg.Favorites.FlushInterval).
		Bool("events", e.cfg.Events.Enabled).
		Msg("engine started")
	return nil
}

// Wait blocks until every task has returned.
func (e *Engine) Wait() error {
	e.mu.Lock()
	g := e.group
	e.mu.Unlock()
	if g == nil {
		return ErrNotStarted
	}
	return g.Wait()
}

// Shutdown cancels all tasks, waits for them within ctx and releases the
// store and cache.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	cancel, g := e.cancel, e.group
	e.mu.Unlock()

	var errs []error
	if cancel != nil {
		cancel()
		done := make(chan error, 1)
		go func() { done <- g.Wait() }()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("waiting for tasks: %w", ctx.Err()))
		}
	}
	if err := e.close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	e.logger.Info().Msg("engine stopped cleanly")
	return nil
}

func (e *Engine) close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Clear wipes every cache; the session is kept.
func (e *Engine) Clear(ctx context.Context) {
	e.directory.Clear(ctx)
	e.guide.Clear()
	e.overlay.Reset()
	e.cache.Clear(ctx)
	e.logger.Info().Msg("caches cleared")
}

// Logout stops playback, forgets the session and clears all caches.
func (e *Engine) Logout(ctx context.Context) error {
	e.seek.Cancel()
	e.controller.Stop()
	if err := e.sessions.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	e.Clear(ctx)
	return nil
}

func (e *Engine) reportFatal(err error) {
	if err == nil || !portal.IsFatal(err) {
		return
	}
	e.fatalOnce.Do(func() {
		e.logger.Error().Err(err).Msg("fatal portal error")
		if e.onFatal != nil {
			e.onFatal(err)
		}
	})
}

func (e *Engine) Config() config.AppConfig         { return e.cfg }
func (e *Engine) API() *portal.API                  { return e.api }
func (e *Engine) Sessions() *portal.Sessions        { return e.sessions }
func (e *Engine) Directory() *channels.Directory    { return e.directory }
func (e *Engine) Guide() *epg.Guide                 { return e.guide }
func (e *Engine) Overlay() *favorites.Overlay       { return e.overlay }
func (e *Engine) Controller() *playback.Controller  { return e.controller }
func (e *Engine) Seek() *seek.Engine                { return e.seek }
func (e *Engine) CacheStats() cache.Stats           { return e.cache.Stats() }
func (e *Engine) Now() time.Time                    { return e.clk.Now() }

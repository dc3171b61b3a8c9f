// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	stblog "github.com/ManuGH/stbportal/internal/log"
)

const defaultDebounce = 500 * time.Millisecond

// Holder keeps the effective configuration and reloads it when the file
// changes. A failed reload keeps the previous configuration.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	logger  zerolog.Logger

	// Debounce coalesces bursts of file events.
	Debounce time.Duration

	listenersMu sync.Mutex
	listeners   []func(old, updated AppConfig)
}

// NewHolder wraps an already loaded configuration.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current:  initial,
		loader:   loader,
		logger:   stblog.WithComponent("config"),
		Debounce: defaultDebounce,
	}
}

// Get returns the current configuration.
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnReload registers fn to run after every successful reload.
func (h *Holder) OnReload(fn func(old, updated AppConfig)) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Reload loads and validates the configuration and swaps it in.
func (h *Holder) Reload() error {
	updated, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str(stblog.FieldEvent, "config.reload_failed").Msg("keeping previous configuration")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	old := h.current
	h.current = updated
	h.mu.Unlock()

	h.listenersMu.Lock()
	fns := append([]func(AppConfig, AppConfig){}, h.listeners...)
	h.listenersMu.Unlock()
	for _, fn := range fns {
		fn(old, updated)
	}
	h.logger.Info().Str(stblog.FieldEvent, "config.reload_success").Msg("configuration reloaded")
	return nil
}

// Watch reloads on writes to the config file until ctx is done. Without a
// file it returns nil at once.
func (h *Holder) Watch(ctx context.Context) error {
	path := h.loader.configPath
	if path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}
	h.logger.Info().Str(stblog.FieldEvent, "config.watcher_started").Str("path", path).Msg("watching config file")

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(h.Debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			_ = h.Reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn().Err(err).Str(stblog.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}

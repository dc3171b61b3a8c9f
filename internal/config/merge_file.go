// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"time"
)

// mergeFileConfig applies the set keys of src onto dst.
func (l *Loader) mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	m := fileMerger{}

	if src.DataDir != "" {
		dst.DataDir = expandEnv(src.DataDir)
	}

	p := src.Portal
	setString(&dst.Portal.URL, p.URL)
	setString(&dst.Portal.DeviceID, p.DeviceID)
	setString(&dst.Portal.Timezone, p.Timezone)
	setString(&dst.Portal.Language, p.Language)
	setString(&dst.Portal.STBType, p.STBType)
	setString(&dst.Portal.UserAgent, p.UserAgent)
	m.duration(&dst.Portal.Timeout, "portal.timeout", p.Timeout)
	setPtr(&dst.Portal.RateLimit, p.RateLimit)
	setPtr(&dst.Portal.RateLimitBurst, p.RateLimitBurst)
	setPtr(&dst.Portal.BreakerThreshold, p.BreakerThreshold)
	m.duration(&dst.Portal.BreakerReset, "portal.breakerReset", p.BreakerReset)
	setPtr(&dst.Portal.MaxAttempts, p.MaxAttempts)
	m.duration(&dst.Portal.RetryBaseDelay, "portal.retryBaseDelay", p.RetryBaseDelay)
	setPtr(&dst.Portal.LiveCreateLink, p.LiveCreateLink)

	setString(&dst.EPG.Location, src.EPG.Location)
	m.duration(&dst.Channels.RefreshInterval, "channels.refreshInterval", src.Channels.RefreshInterval)
	m.duration(&dst.Favorites.FlushInterval, "favorites.flushInterval", src.Favorites.FlushInterval)

	setPtr(&dst.Seek.ScrubSpeed, src.Seek.ScrubSpeed)
	m.duration(&dst.Seek.Tick, "seek.tick", src.Seek.Tick)

	setPtr(&dst.Events.Enabled, src.Events.Enabled)
	m.duration(&dst.Events.PollInterval, "events.pollInterval", src.Events.PollInterval)

	setString(&dst.Store.Backend, src.Store.Backend)
	if src.Store.Path != "" {
		dst.Store.Path = expandEnv(src.Store.Path)
	}

	c := src.Cache
	setString(&dst.Cache.Backend, c.Backend)
	m.duration(&dst.Cache.CleanupInterval, "cache.cleanupInterval", c.CleanupInterval)
	setString(&dst.Cache.RedisAddr, c.RedisAddr)
	setString(&dst.Cache.RedisPassword, c.RedisPassword)
	setPtr(&dst.Cache.RedisDB, c.RedisDB)
	setString(&dst.Cache.RedisPrefix, c.RedisPrefix)

	a := src.API
	setPtr(&dst.API.Enabled, a.Enabled)
	setString(&dst.API.ListenAddr, a.ListenAddr)
	setPtr(&dst.API.RateLimit, a.RateLimit)
	m.duration(&dst.API.ReadTimeout, "api.readTimeout", a.ReadTimeout)
	m.duration(&dst.API.WriteTimeout, "api.writeTimeout", a.WriteTimeout)
	m.duration(&dst.API.ShutdownTimeout, "api.shutdownTimeout", a.ShutdownTimeout)

	setString(&dst.Log.Level, src.Log.Level)
	setString(&dst.Log.Service, src.Log.Service)

	t := src.Telemetry
	setPtr(&dst.Telemetry.Enabled, t.Enabled)
	setString(&dst.Telemetry.Exporter, t.Exporter)
	setString(&dst.Telemetry.Endpoint, t.Endpoint)
	setPtr(&dst.Telemetry.SamplingRate, t.SamplingRate)
	setString(&dst.Telemetry.Environment, t.Environment)

	return m.err()
}

// fileMerger collects duration parse failures so that one run reports
// every bad key.
type fileMerger struct {
	errs []error
}

func (m *fileMerger) duration(dst *time.Duration, key, raw string) {
	if raw == "" {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		m.errs = append(m.errs, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err))
		return
	}
	*dst = d
}

func (m *fileMerger) err() error {
	return errors.Join(m.errs...)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

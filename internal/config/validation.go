// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"time"

	"github.com/ManuGH/stbportal/internal/portal"
	"github.com/ManuGH/stbportal/internal/validate"
	"github.com/rs/zerolog"
)

var (
	storeBackends    = []string{"file", "sqlite", "memory"}
	cacheBackends    = []string{"memory", "redis", "none"}
	exporterTypes    = []string{"grpc", "http"}
	minPollInterval  = 10 * time.Second
	minRefreshPeriod = time.Minute
)

// Validate checks a resolved configuration.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.URL("portal.url", cfg.Portal.URL, []string{"http", "https"})
	if cfg.Portal.DeviceID != "" {
		if _, ok := portal.NormalizeDeviceID(cfg.Portal.DeviceID); !ok {
			v.AddError("portal.deviceId", "must be a MAC address (00:1A:79:XX:XX:XX)", "***")
		}
	}
	v.Custom("portal.timezone", cfg.Portal.Timezone, knownZone)
	v.MinDuration("portal.timeout", cfg.Portal.Timeout, time.Second)
	v.FloatRange("portal.rateLimit", cfg.Portal.RateLimit, 0.1, 1000)
	v.Positive("portal.rateLimitBurst", cfg.Portal.RateLimitBurst)
	v.Positive("portal.breakerThreshold", cfg.Portal.BreakerThreshold)
	v.MinDuration("portal.breakerReset", cfg.Portal.BreakerReset, time.Second)
	v.Range("portal.maxAttempts", cfg.Portal.MaxAttempts, 1, 10)
	v.MinDuration("portal.retryBaseDelay", cfg.Portal.RetryBaseDelay, 0)

	v.Custom("epg.location", cfg.EPG.Location, func(any) error {
		_, err := Location(cfg.EPG)
		return err
	})
	v.MinDuration("channels.refreshInterval", cfg.Channels.RefreshInterval, minRefreshPeriod)
	v.MinDuration("favorites.flushInterval", cfg.Favorites.FlushInterval, time.Second)
	v.FloatRange("seek.scrubSpeed", cfg.Seek.ScrubSpeed, 1, 600)
	v.MinDuration("seek.tick", cfg.Seek.Tick, 50*time.Millisecond)
	if cfg.Events.Enabled {
		v.MinDuration("events.pollInterval", cfg.Events.PollInterval, minPollInterval)
	}

	v.OneOf("store.backend", cfg.Store.Backend, storeBackends)
	v.OneOf("cache.backend", cfg.Cache.Backend, cacheBackends)
	if cfg.Cache.Backend == "redis" {
		v.NotEmpty("cache.redisAddr", cfg.Cache.RedisAddr)
	}
	v.Directory("dataDir", cfg.DataDir, false)

	if cfg.API.Enabled {
		v.NotEmpty("api.listenAddr", cfg.API.ListenAddr)
		v.Positive("api.rateLimit", cfg.API.RateLimit)
		v.MinDuration("api.shutdownTimeout", cfg.API.ShutdownTimeout, time.Second)
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		v.AddError("log.level", "invalid log level", cfg.Log.Level)
	}
	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, exporterTypes)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}

func knownZone(value any) error {
	if _, err := time.LoadLocation(value.(string)); err != nil {
		return fmt.Errorf("unknown zone: %w", err)
	}
	return nil
}

// Location resolves the guide zone.
func Location(c EPGConfig) (*time.Location, error) {
	switch c.Location {
	case "", "Local":
		return time.Local, nil
	}
	return time.LoadLocation(c.Location)
}

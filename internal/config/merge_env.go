// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

// EnvPrefix prefixes every environment key.
const EnvPrefix = "STBPORTAL_"

// mergeEnvConfig merges environment variables into cfg.
// ENV variables have the highest precedence.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString("DATA_DIR", cfg.DataDir)

	p := &cfg.Portal
	p.URL = l.envString("PORTAL_URL", p.URL)
	p.DeviceID = l.envString("PORTAL_DEVICE_ID", p.DeviceID)
	p.Timezone = l.envString("PORTAL_TIMEZONE", p.Timezone)
	p.Language = l.envString("PORTAL_LANGUAGE", p.Language)
	p.STBType = l.envString("PORTAL_STB_TYPE", p.STBType)
	p.UserAgent = l.envString("PORTAL_USER_AGENT", p.UserAgent)
	p.Timeout = l.envDuration("PORTAL_TIMEOUT", p.Timeout)
	p.RateLimit = l.envFloat("PORTAL_RATE_LIMIT", p.RateLimit)
	p.RateLimitBurst = l.envInt("PORTAL_RATE_LIMIT_BURST", p.RateLimitBurst)
	p.BreakerThreshold = l.envInt("PORTAL_BREAKER_THRESHOLD", p.BreakerThreshold)
	p.BreakerReset = l.envDuration("PORTAL_BREAKER_RESET", p.BreakerReset)
	p.MaxAttempts = l.envInt("PORTAL_MAX_ATTEMPTS", p.MaxAttempts)
	p.RetryBaseDelay = l.envDuration("PORTAL_RETRY_BASE_DELAY", p.RetryBaseDelay)
	p.LiveCreateLink = l.envBool("PORTAL_LIVE_CREATE_LINK", p.LiveCreateLink)

	cfg.EPG.Location = l.envString("EPG_LOCATION", cfg.EPG.Location)
	cfg.Channels.RefreshInterval = l.envDuration("CHANNELS_REFRESH_INTERVAL", cfg.Channels.RefreshInterval)
	cfg.Favorites.FlushInterval = l.envDuration("FAVORITES_FLUSH_INTERVAL", cfg.Favorites.FlushInterval)
	cfg.Seek.ScrubSpeed = l.envFloat("SEEK_SCRUB_SPEED", cfg.Seek.ScrubSpeed)
	cfg.Seek.Tick = l.envDuration("SEEK_TICK", cfg.Seek.Tick)
	cfg.Events.Enabled = l.envBool("EVENTS_ENABLED", cfg.Events.Enabled)
	cfg.Events.PollInterval = l.envDuration("EVENTS_POLL_INTERVAL", cfg.Events.PollInterval)

	cfg.Store.Backend = l.envString("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = l.envString("STORE_PATH", cfg.Store.Path)

	c := &cfg.Cache
	c.Backend = l.envString("CACHE_BACKEND", c.Backend)
	c.CleanupInterval = l.envDuration("CACHE_CLEANUP_INTERVAL", c.CleanupInterval)
	c.RedisAddr = l.envString("CACHE_REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = l.envString("CACHE_REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = l.envInt("CACHE_REDIS_DB", c.RedisDB)
	c.RedisPrefix = l.envString("CACHE_REDIS_PREFIX", c.RedisPrefix)

	a := &cfg.API
	a.Enabled = l.envBool("API_ENABLED", a.Enabled)
	a.ListenAddr = l.envString("API_LISTEN_ADDR", a.ListenAddr)
	a.RateLimit = l.envInt("API_RATE_LIMIT", a.RateLimit)
	a.ReadTimeout = l.envDuration("API_READ_TIMEOUT", a.ReadTimeout)
	a.WriteTimeout = l.envDuration("API_WRITE_TIMEOUT", a.WriteTimeout)
	a.ShutdownTimeout = l.envDuration("API_SHUTDOWN_TIMEOUT", a.ShutdownTimeout)

	cfg.Log.Level = l.envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = l.envString("LOG_SERVICE", cfg.Log.Service)

	t := &cfg.Telemetry
	t.Enabled = l.envBool("TELEMETRY_ENABLED", t.Enabled)
	t.Exporter = l.envString("TELEMETRY_EXPORTER", t.Exporter)
	t.Endpoint = l.envString("TELEMETRY_ENDPOINT", t.Endpoint)
	t.SamplingRate = l.envFloat("TELEMETRY_SAMPLING_RATE", t.SamplingRate)
	t.Environment = l.envString("TELEMETRY_ENVIRONMENT", t.Environment)
}

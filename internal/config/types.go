// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version string `yaml:"-" json:"-"`
	DataDir string `yaml:"dataDir" json:"dataDir"`

	Portal    PortalConfig    `yaml:"portal" json:"portal"`
	EPG       EPGConfig       `yaml:"epg" json:"epg"`
	Channels  ChannelsConfig  `yaml:"channels" json:"channels"`
	Favorites FavoritesConfig `yaml:"favorites" json:"favorites"`
	Seek      SeekConfig      `yaml:"seek" json:"seek"`
	Events    EventsConfig    `yaml:"events" json:"events"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	API       APIConfig       `yaml:"api" json:"api"`
	Log       LogConfig       `yaml:"log" json:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// PortalConfig addresses the middleware and identifies the device.
type PortalConfig struct {
	URL      string `yaml:"url" json:"url"`
	DeviceID string `yaml:"deviceId" json:"deviceId"`
	Timezone string `yaml:"timezone" json:"timezone"`
	Language string `yaml:"language" json:"language"`
	STBType  string `yaml:"stbType" json:"stbType"`

	UserAgent        string        `yaml:"userAgent" json:"userAgent"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	RateLimit        float64       `yaml:"rateLimit" json:"rateLimit"`
	RateLimitBurst   int           `yaml:"rateLimitBurst" json:"rateLimitBurst"`
	BreakerThreshold int           `yaml:"breakerThreshold" json:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset" json:"breakerReset"`
	MaxAttempts      int           `yaml:"maxAttempts" json:"maxAttempts"`
	RetryBaseDelay   time.Duration `yaml:"retryBaseDelay" json:"retryBaseDelay"`
	// LiveCreateLink requests a fresh handle for live playback instead of
	// playing the channel command directly.
	LiveCreateLink bool `yaml:"liveCreateLink" json:"liveCreateLink"`
}

// EPGConfig controls the program guide cache.
type EPGConfig struct {
	// Location is the IANA zone used for guide days; "Local" uses the host zone.
	Location string `yaml:"location" json:"location"`
}

// ChannelsConfig controls the channel directory.
type ChannelsConfig struct {
	RefreshInterval time.Duration `yaml:"refreshInterval" json:"refreshInterval"`
}

// FavoritesConfig controls the favorites overlay.
type FavoritesConfig struct {
	FlushInterval time.Duration `yaml:"flushInterval" json:"flushInterval"`
}

// SeekConfig tunes scrubbing.
type SeekConfig struct {
	ScrubSpeed float64       `yaml:"scrubSpeed" json:"scrubSpeed"`
	Tick       time.Duration `yaml:"tick" json:"tick"`
}

// EventsConfig controls the notification poller.
type EventsConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	PollInterval time.Duration `yaml:"pollInterval" json:"pollInterval"`
}

// StoreConfig selects the credential store.
type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Path    string `yaml:"path" json:"path"`
}

// CacheConfig selects the known-good command cache.
type CacheConfig struct {
	Backend         string        `yaml:"backend" json:"backend"`
	CleanupInterval time.Duration `yaml:"cleanupInterval" json:"cleanupInterval"`
	RedisAddr       string        `yaml:"redisAddr" json:"redisAddr"`
	RedisPassword   string        `yaml:"redisPassword" json:"redisPassword"`
	RedisDB         int           `yaml:"redisDb" json:"redisDb"`
	RedisPrefix     string        `yaml:"redisPrefix" json:"redisPrefix"`
}

// APIConfig controls the diagnostics server.
type APIConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	ListenAddr      string        `yaml:"listenAddr" json:"listenAddr"`
	RateLimit       int           `yaml:"rateLimit" json:"rateLimit"` // requests per minute per client
	ReadTimeout     time.Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" json:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`
}

// LogConfig controls zerolog.
type LogConfig struct {
	Level   string `yaml:"level" json:"level"`
	Service string `yaml:"service" json:"service"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	Endpoint     string  `yaml:"endpoint" json:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
	Environment  string  `yaml:"environment" json:"environment"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir: "/var/lib/stbportal",
		Portal: PortalConfig{
			Timezone:         "UTC",
			Language:         "en",
			STBType:          "MAG250",
			Timeout:          10 * time.Second,
			RateLimit:        10,
			RateLimitBurst:   20,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
			MaxAttempts:      3,
			RetryBaseDelay:   500 * time.Millisecond,
		},
		EPG:       EPGConfig{Location: "Local"},
		Channels:  ChannelsConfig{RefreshInterval: time.Hour},
		Favorites: FavoritesConfig{FlushInterval: time.Minute},
		Seek:      SeekConfig{ScrubSpeed: 30, Tick: 300 * time.Millisecond},
		Events:    EventsConfig{Enabled: true, PollInterval: 2 * time.Minute},
		Store:     StoreConfig{Backend: "file"},
		Cache:     CacheConfig{Backend: "memory", CleanupInterval: 5 * time.Minute, RedisPrefix: "stbportal:"},
		API: APIConfig{
			Enabled:         true,
			ListenAddr:      "127.0.0.1:8089",
			RateLimit:       120,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{Level: "info", Service: "stbportal"},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1,
			Environment:  "production",
		},
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

// FileConfig is the YAML shape. Pointers distinguish an explicit zero from
// an absent key; durations are Go duration strings ("10s").
type FileConfig struct {
	DataDir string `yaml:"dataDir,omitempty"`

	Portal    FilePortal    `yaml:"portal,omitempty"`
	EPG       FileEPG       `yaml:"epg,omitempty"`
	Channels  FileChannels  `yaml:"channels,omitempty"`
	Favorites FileFavorites `yaml:"favorites,omitempty"`
	Seek      FileSeek      `yaml:"seek,omitempty"`
	Events    FileEvents    `yaml:"events,omitempty"`
	Store     FileStore     `yaml:"store,omitempty"`
	Cache     FileCache     `yaml:"cache,omitempty"`
	API       FileAPI       `yaml:"api,omitempty"`
	Log       FileLog       `yaml:"log,omitempty"`
	Telemetry FileTelemetry `yaml:"telemetry,omitempty"`
}

type FilePortal struct {
	URL              string   `yaml:"url,omitempty"`
	DeviceID         string   `yaml:"deviceId,omitempty"`
	Timezone         string   `yaml:"timezone,omitempty"`
	Language         string   `yaml:"language,omitempty"`
	STBType          string   `yaml:"stbType,omitempty"`
	UserAgent        string   `yaml:"userAgent,omitempty"`
	Timeout          string   `yaml:"timeout,omitempty"`
	RateLimit        *float64 `yaml:"rateLimit,omitempty"`
	RateLimitBurst   *int     `yaml:"rateLimitBurst,omitempty"`
	BreakerThreshold *int     `yaml:"breakerThreshold,omitempty"`
	BreakerReset     string   `yaml:"breakerReset,omitempty"`
	MaxAttempts      *int     `yaml:"maxAttempts,omitempty"`
	RetryBaseDelay   string   `yaml:"retryBaseDelay,omitempty"`
	LiveCreateLink   *bool    `yaml:"liveCreateLink,omitempty"`
}

type FileEPG struct {
	Location string `yaml:"location,omitempty"`
}

type FileChannels struct {
	RefreshInterval string `yaml:"refreshInterval,omitempty"`
}

type FileFavorites struct {
	FlushInterval string `yaml:"flushInterval,omitempty"`
}

type FileSeek struct {
	ScrubSpeed *float64 `yaml:"scrubSpeed,omitempty"`
	Tick       string   `yaml:"tick,omitempty"`
}

type FileEvents struct {
	Enabled      *bool  `yaml:"enabled,omitempty"`
	PollInterval string `yaml:"pollInterval,omitempty"`
}

type FileStore struct {
	Backend string `yaml:"backend,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

type FileCache struct {
	Backend         string `yaml:"backend,omitempty"`
	CleanupInterval string `yaml:"cleanupInterval,omitempty"`
	RedisAddr       string `yaml:"redisAddr,omitempty"`
	RedisPassword   string `yaml:"redisPassword,omitempty"`
	RedisDB         *int   `yaml:"redisDb,omitempty"`
	RedisPrefix     string `yaml:"redisPrefix,omitempty"`
}

type FileAPI struct {
	Enabled         *bool  `yaml:"enabled,omitempty"`
	ListenAddr      string `yaml:"listenAddr,omitempty"`
	RateLimit       *int   `yaml:"rateLimit,omitempty"`
	ReadTimeout     string `yaml:"readTimeout,omitempty"`
	WriteTimeout    string `yaml:"writeTimeout,omitempty"`
	ShutdownTimeout string `yaml:"shutdownTimeout,omitempty"`
}

type FileLog struct {
	Level   string `yaml:"level,omitempty"`
	Service string `yaml:"service,omitempty"`
}

type FileTelemetry struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
	Environment  string   `yaml:"environment,omitempty"`
}

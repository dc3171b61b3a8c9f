// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
	// EnvFiles are loaded with godotenv before the environment is read.
	// Variables already set in the process win.
	EnvFiles        []string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) track(key string) string {
	full := EnvPrefix + key
	l.ConsumedEnvKeys[full] = struct{}{}
	return full
}

func (l *Loader) envString(key, defaultVal string) string {
	return ParseString(l.track(key), defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	return ParseBool(l.track(key), defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	return ParseInt(l.track(key), defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	return ParseDuration(l.track(key), defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	return ParseFloat(l.track(key), defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: defaults -> strict file parse -> .env + environment -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := l.mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	if err := l.loadEnvFiles(); err != nil {
		return cfg, err
	}
	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Portal.URL = strings.TrimSpace(cfg.Portal.URL)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadEnvFiles loads the configured dotenv files. A missing file is not
// an error.
func (l *Loader) loadEnvFiles() error {
	for _, p := range l.EnvFiles {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes a single strict YAML document.
func ParseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/stbportal/internal/log"
	"github.com/rs/zerolog"
)

// parseEnv reads key with parse. It falls back to defaultValue when the
// variable is unset, empty or malformed, and logs which source won.
func parseEnv[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	switch {
	case !ok:
		logger.Debug().Str("key", key).Interface("default", defaultValue).Str("source", "default").Msg("using default value")
		return defaultValue
	case v == "":
		logger.Debug().Str("key", key).Interface("default", defaultValue).Str("source", "default").
			Msg("using default value (environment variable is empty)")
		return defaultValue
	}
	parsed, err := parse(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", redact(key, v)).Interface("default", defaultValue).
			Msg("invalid value in environment variable, using default")
		return defaultValue
	}
	logEnvSource(logger, key, v)
	return parsed
}

func logEnvSource(logger zerolog.Logger, key, value string) {
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitiveKey(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", value)
	}
	ev.Msg("using environment variable")
}

// ParseString reads a string from environment variable or returns default value.
func ParseString(key, defaultValue string) string {
	return parseEnv(key, defaultValue, func(s string) (string, error) { return s, nil })
}

// ParseInt reads an integer from environment variable or returns default value.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, strconv.Atoi)
}

// ParseDuration reads a duration in Go duration format (e.g. "5s").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, time.ParseDuration)
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// ParseBool accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, strconv.ErrSyntax
	})
}

func redact(key, value string) string {
	if isSensitiveKey(key) {
		return "***"
	}
	return value
}

// expandEnv expands environment variables in the format ${VAR} or $VAR
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

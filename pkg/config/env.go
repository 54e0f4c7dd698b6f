// Package config provides lenient environment getters for values that need
// no validation beyond parsing. Unparsable values log a warning and yield
// the default.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvString returns the variable or defaultValue when unset or empty.
func GetEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getParsed[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	value, err := parse(raw)
	if err != nil {
		slog.Warn("invalid environment variable, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Any("default", defaultValue),
			slog.String("error", err.Error()))
		return defaultValue
	}
	return value
}

// GetEnvInt parses a base-10 int.
func GetEnvInt(key string, defaultValue int) int {
	return getParsed(key, defaultValue, strconv.Atoi)
}

// GetEnvInt64 parses a base-10 int64.
func GetEnvInt64(key string, defaultValue int64) int64 {
	return getParsed(key, defaultValue, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}

// GetEnvFloat parses a float64.
func GetEnvFloat(key string, defaultValue float64) float64 {
	return getParsed(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// GetEnvBool parses any form accepted by strconv.ParseBool.
func GetEnvBool(key string, defaultValue bool) bool {
	return getParsed(key, defaultValue, strconv.ParseBool)
}

// GetEnvDuration parses a Go duration string such as "30s" or "1h30m".
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return getParsed(key, defaultValue, time.ParseDuration)
}

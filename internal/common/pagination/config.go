// Package pagination provides offset/limit paging for registry listings.
package pagination

import (
	pkgconfig "course-watch/pkg/config"
)

// Config holds paging defaults and bounds.
type Config struct {
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// DefaultConfig returns page 1, 20 items per page, at most 100.
func DefaultConfig() Config {
	return Config{
		DefaultPage:  1,
		DefaultLimit: 20,
		MaxLimit:     100,
	}
}

// LoadFromEnv reads PAGINATION_DEFAULT_LIMIT and PAGINATION_MAX_LIMIT.
// Inconsistent values fall back to the defaults.
func LoadFromEnv() Config {
	cfg := DefaultConfig()
	cfg.DefaultLimit = pkgconfig.GetEnvInt("PAGINATION_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.MaxLimit = pkgconfig.GetEnvInt("PAGINATION_MAX_LIMIT", cfg.MaxLimit)
	if cfg.MaxLimit < 1 || cfg.DefaultLimit < 1 || cfg.DefaultLimit > cfg.MaxLimit {
		return DefaultConfig()
	}
	return cfg
}

package worker

import (
	"fmt"
	"log/slog"
	"time"

	"course-watch/internal/pkg/config"
)

// WorkerConfig holds the configuration of the schedule sync worker.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Every field has a default and a validation rule, so the worker can start
// with missing or broken environment values.
type WorkerConfig struct {
	// CronSchedule is the cron expression for sync ticks.
	// Format: "minute hour day month weekday"
	// Default: "0 * * * *" (hourly)
	CronSchedule string

	// Timezone is the IANA timezone the cron schedule is evaluated in.
	// Default: "UTC"
	Timezone string

	// SyncTimeout bounds one whole tick over all schedules.
	// Range: 1m-4h
	// Default: 30 minutes
	SyncTimeout time.Duration

	// FetchTimeout bounds a single timetable request.
	// Range: 1s-5m
	// Default: 30 seconds
	FetchTimeout time.Duration

	// EmptyFetchConfirmations is how many consecutive empty fetches a
	// schedule with stored courses needs before its courses are removed.
	// Range: 1-50
	// Default: 3
	EmptyFetchConfirmations int

	// HealthPort is the port of the health check HTTP server.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int

	// MetricsPort is the port of the Prometheus metrics server.
	// Range: 1024-65535
	// Default: 9090
	MetricsPort int
}

// DefaultConfig returns a WorkerConfig with production defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:            "0 * * * *",
		Timezone:                "UTC",
		SyncTimeout:             30 * time.Minute,
		FetchTimeout:            30 * time.Second,
		EmptyFetchConfirmations: 3,
		HealthPort:              9091,
		MetricsPort:             9090,
	}
}

// Validate checks every field and returns all failures together.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.SyncTimeout, time.Minute, 4*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("sync timeout: %w", err))
	}
	if err := config.ValidateDuration(c.FetchTimeout, time.Second, 5*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("fetch timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.EmptyFetchConfirmations, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("empty fetch confirmations: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health port and metrics port must differ (both %d)", c.HealthPort))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration with a fail-open
// strategy: an invalid value is replaced by its default, logged, and
// counted in metrics. The returned error is always nil.
//
// Environment variables:
//   - CRON_SCHEDULE
//   - WORKER_TIMEZONE
//   - SYNC_TIMEOUT
//   - FETCH_TIMEOUT
//   - EMPTY_FETCH_CONFIRMATIONS
//   - WORKER_HEALTH_PORT
//   - METRICS_PORT
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	apply := func(field, metricField string, result config.ConfigLoadResult) {
		if metrics.Report(logger, field, metricField, result) {
			fallbackApplied = true
		}
	}

	result := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	apply("CronSchedule", "cron_schedule", result)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	apply("Timezone", "timezone", result)

	result = config.LoadEnvDuration("SYNC_TIMEOUT", cfg.SyncTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, 4*time.Hour)
	})
	cfg.SyncTimeout = result.Value.(time.Duration)
	apply("SyncTimeout", "sync_timeout", result)

	result = config.LoadEnvDuration("FETCH_TIMEOUT", cfg.FetchTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, 5*time.Minute)
	})
	cfg.FetchTimeout = result.Value.(time.Duration)
	apply("FetchTimeout", "fetch_timeout", result)

	result = config.LoadEnvInt("EMPTY_FETCH_CONFIRMATIONS", cfg.EmptyFetchConfirmations, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.EmptyFetchConfirmations = result.Value.(int)
	apply("EmptyFetchConfirmations", "empty_fetch_confirmations", result)

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	apply("HealthPort", "health_port", result)

	result = config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.MetricsPort = result.Value.(int)
	apply("MetricsPort", "metrics_port", result)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}

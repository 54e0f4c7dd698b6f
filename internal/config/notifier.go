package config

import (
	"errors"
	"fmt"
	"time"

	"course-watch/internal/common/pagination"
	"course-watch/internal/infra/notifier"
	"course-watch/internal/usecase/notify"
	pkgconfig "course-watch/pkg/config"
)

// NotifierConfig holds configuration for the notifier binary.
type NotifierConfig struct {
	// Discord configures the outbound webhook client.
	// DISCORD_ENABLED=false swaps it for the no-op client.
	Discord notifier.DiscordConfig

	// Dispatch bounds the per-event fan-out.
	// Default: 10 concurrent deliveries, 30s each
	Dispatch notify.Config

	// Pagination bounds registry listings.
	// Default: 20 per page, at most 100
	Pagination pagination.Config

	// HealthPort serves /health and /health/ready. Default: 9092
	HealthPort int

	// MetricsPort serves /metrics. Default: 9093
	MetricsPort int
}

// LoadNotifierConfig loads notifier configuration from environment variables.
// Returns a config with defaults if environment variables are not set.
func LoadNotifierConfig() (*NotifierConfig, error) {
	def := notifier.DefaultDiscordConfig()
	cfg := &NotifierConfig{
		Discord: notifier.DiscordConfig{
			Enabled:           pkgconfig.GetEnvBool("DISCORD_ENABLED", def.Enabled),
			BaseURL:           pkgconfig.GetEnvString("DISCORD_WEBHOOK_BASE_URL", def.BaseURL),
			Timeout:           pkgconfig.GetEnvDuration("DISCORD_TIMEOUT", def.Timeout),
			RequestsPerSecond: pkgconfig.GetEnvFloat("DISCORD_RATE_LIMIT", def.RequestsPerSecond),
			Burst:             pkgconfig.GetEnvInt("DISCORD_RATE_BURST", def.Burst),
		},
		Dispatch: notify.Config{
			MaxConcurrent:   pkgconfig.GetEnvInt("NOTIFY_MAX_CONCURRENT", 10),
			DeliveryTimeout: pkgconfig.GetEnvDuration("DELIVERY_TIMEOUT", 30*time.Second),
		},
		Pagination:  pagination.LoadFromEnv(),
		HealthPort:  pkgconfig.GetEnvInt("NOTIFIER_HEALTH_PORT", 9092),
		MetricsPort: pkgconfig.GetEnvInt("METRICS_PORT", 9093),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid notifier configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration correctness. Every problem is reported.
func (c *NotifierConfig) Validate() error {
	var errs []error

	if c.Discord.Enabled && c.Discord.BaseURL == "" {
		errs = append(errs, errors.New("DISCORD_WEBHOOK_BASE_URL cannot be empty"))
	}
	if c.Discord.Timeout <= 0 {
		errs = append(errs, errors.New("DISCORD_TIMEOUT must be positive"))
	}
	if c.Discord.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("DISCORD_RATE_LIMIT cannot be negative"))
	}
	if c.Discord.RequestsPerSecond > 0 && c.Discord.Burst < 1 {
		errs = append(errs, errors.New("DISCORD_RATE_BURST must be at least 1 when rate limiting is enabled"))
	}
	if c.Dispatch.MaxConcurrent < 1 || c.Dispatch.MaxConcurrent > 50 {
		errs = append(errs, fmt.Errorf("NOTIFY_MAX_CONCURRENT must be between 1 and 50, got %d", c.Dispatch.MaxConcurrent))
	}
	if c.Dispatch.DeliveryTimeout <= 0 {
		errs = append(errs, errors.New("DELIVERY_TIMEOUT must be positive"))
	}
	for name, port := range map[string]int{"NOTIFIER_HEALTH_PORT": c.HealthPort, "METRICS_PORT": c.MetricsPort} {
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s must be between 1 and 65535, got %d", name, port))
		}
	}
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, errors.New("NOTIFIER_HEALTH_PORT and METRICS_PORT must differ"))
	}

	return errors.Join(errs...)
}

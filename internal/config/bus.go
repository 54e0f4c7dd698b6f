// Package config loads the service-level configuration of the worker and
// notifier binaries from environment variables.
package config

import (
	"errors"
	"fmt"

	"course-watch/internal/infra/eventbus"
	pkgconfig "course-watch/pkg/config"
)

// EventBusConfig holds the Redis Streams settings shared by the worker
// (publisher) and the notifier (consumer).
type EventBusConfig struct {
	// RedisURL is a redis:// or rediss:// URL. Default: redis://localhost:6379/0
	RedisURL string

	// Topology names the partitioned streams. Both binaries must agree on it.
	Topology eventbus.Topology

	// MaxLen trims each stream approximately; 0 disables trimming.
	MaxLen int64

	// Group and Consumer identify the notifier in the consumer group.
	// Run one notifier per group; a second live consumer name breaks
	// per-schedule ordering. Renaming is safe: the new name claims the
	// entries the old one left pending.
	Group    string
	Consumer string
}

// LoadEventBusConfig reads REDIS_URL and the EVENT_* variables.
func LoadEventBusConfig() (*EventBusConfig, error) {
	def := eventbus.DefaultConsumerConfig()
	cfg := &EventBusConfig{
		RedisURL: pkgconfig.GetEnvString("REDIS_URL", "redis://localhost:6379/0"),
		Topology: eventbus.Topology{
			Prefix:     pkgconfig.GetEnvString("EVENT_STREAM_PREFIX", def.Topology.Prefix),
			Partitions: pkgconfig.GetEnvInt("EVENT_STREAM_PARTITIONS", def.Topology.Partitions),
		},
		MaxLen:   pkgconfig.GetEnvInt64("EVENT_STREAM_MAXLEN", 100000),
		Group:    pkgconfig.GetEnvString("EVENT_CONSUMER_GROUP", def.Group),
		Consumer: pkgconfig.GetEnvString("EVENT_CONSUMER_NAME", def.Name),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event bus configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration correctness.
func (c *EventBusConfig) Validate() error {
	var errs []error
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL cannot be empty"))
	}
	if c.Topology.Prefix == "" {
		errs = append(errs, errors.New("EVENT_STREAM_PREFIX cannot be empty"))
	}
	if c.Topology.Partitions < 1 || c.Topology.Partitions > 256 {
		errs = append(errs, fmt.Errorf("EVENT_STREAM_PARTITIONS must be between 1 and 256, got %d", c.Topology.Partitions))
	}
	if c.MaxLen < 0 {
		errs = append(errs, errors.New("EVENT_STREAM_MAXLEN cannot be negative"))
	}
	if c.Group == "" {
		errs = append(errs, errors.New("EVENT_CONSUMER_GROUP cannot be empty"))
	}
	if c.Consumer == "" {
		errs = append(errs, errors.New("EVENT_CONSUMER_NAME cannot be empty"))
	}
	return errors.Join(errs...)
}

// ConsumerConfig renders the settings for eventbus.NewConsumer.
func (c *EventBusConfig) ConsumerConfig() eventbus.ConsumerConfig {
	cc := eventbus.DefaultConsumerConfig()
	cc.Topology = c.Topology
	cc.Group = c.Group
	cc.Name = c.Consumer
	return cc
}

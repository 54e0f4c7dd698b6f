package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"course-watch/internal/config"
	pgRepo "course-watch/internal/infra/adapter/persistence/postgres"
	"course-watch/internal/infra/db"
	"course-watch/internal/infra/eventbus"
	"course-watch/internal/infra/notifier"
	workerPkg "course-watch/internal/infra/worker"
	"course-watch/internal/observability/logging"
	"course-watch/internal/observability/metrics"
	cfgpkg "course-watch/internal/pkg/config"
	"course-watch/internal/usecase/notify"
	"course-watch/internal/usecase/webhook"
)

func main() {
	logger := logging.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configMetrics := cfgpkg.NewConfigMetrics("notifier")
	notifierConfig, err := config.LoadNotifierConfig()
	if err != nil {
		configMetrics.RecordValidationError("notifier")
		logger.Error("failed to load notifier configuration", slog.Any("error", err))
		os.Exit(1)
	}
	busConfig, err := config.LoadEventBusConfig()
	if err != nil {
		configMetrics.RecordValidationError("event_bus")
		logger.Error("failed to load event bus configuration", slog.Any("error", err))
		os.Exit(1)
	}
	configMetrics.RecordLoadTimestamp()
	logger.Info("notifier configuration loaded",
		slog.Bool("discord_enabled", notifierConfig.Discord.Enabled),
		slog.Float64("discord_rate_limit", notifierConfig.Discord.RequestsPerSecond),
		slog.Int("max_concurrent", notifierConfig.Dispatch.MaxConcurrent),
		slog.Duration("delivery_timeout", notifierConfig.Dispatch.DeliveryTimeout),
		slog.String("consumer_group", busConfig.Group),
		slog.String("consumer", busConfig.Consumer),
		slog.Int("partitions", busConfig.Topology.Partitions))

	database, err := db.Open(ctx, os.Getenv("DATABASE_URL"), db.ConnectionConfigFromEnv())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(ctx, database); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	opts, err := redis.ParseURL(busConfig.RedisURL)
	if err != nil {
		logger.Error("invalid REDIS_URL", slog.Any("error", err))
		os.Exit(1)
	}
	rdb := redis.NewClient(opts)
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}()

	sender := newSender(logger, notifierConfig.Discord)
	scheduleRepo := pgRepo.NewScheduleRepo(database)
	registry := &webhook.Service{
		Webhooks:   pgRepo.NewWebhookRepo(database),
		Schedules:  scheduleRepo,
		Prober:     sender,
		BaseURL:    notifierConfig.Discord.BaseURL,
		Pagination: notifierConfig.Pagination,
	}
	dispatcher := notify.NewDispatcher(registry, scheduleRepo, sender, notifierConfig.Dispatch)

	metrics.StartServer(ctx, logger, notifierConfig.MetricsPort)
	go metrics.CollectDBStats(ctx, database, 15*time.Second)

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", notifierConfig.HealthPort), logger)
	healthServer.AddCheck("database", database.PingContext)
	healthServer.AddCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	consumer := eventbus.NewConsumer(rdb, busConfig.ConsumerConfig())
	if err := ensureGroups(ctx, logger, consumer); err != nil {
		logger.Error("failed to create consumer groups", slog.Any("error", err))
		os.Exit(1)
	}
	healthServer.SetReady(true)

	if err := consumer.Run(ctx, newEventHandler(dispatcher)); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("event consumer stopped", slog.Any("error", err))
		os.Exit(1)
	}
	healthServer.SetReady(false)
	logger.Info("notifier stopped")
}

// newSender returns the Discord client, or the no-op client when delivery
// is disabled.
func newSender(logger *slog.Logger, cfg notifier.DiscordConfig) notifier.WebhookSender {
	if !cfg.Enabled {
		logger.Info("Discord delivery disabled, using no-op client")
		return notifier.NewNoOpClient()
	}
	logger.Info("Discord client initialized",
		slog.String("base_url", cfg.BaseURL),
		slog.Duration("timeout", cfg.Timeout))
	return notifier.NewDiscordClient(cfg)
}

// ensureGroups waits for Redis to accept the consumer groups, retrying
// every 3 seconds up to 10 times.
func ensureGroups(ctx context.Context, logger *slog.Logger, consumer *eventbus.Consumer) error {
	var err error
	for attempt := 1; attempt <= 10; attempt++ {
		if err = consumer.EnsureGroups(ctx); err == nil {
			return nil
		}
		logger.Info("waiting for redis, retrying in 3s",
			slog.Int("attempt", attempt),
			slog.Any("error", err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return err
}

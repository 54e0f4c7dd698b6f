package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"

	"course-watch/internal/config"
	pgRepo "course-watch/internal/infra/adapter/persistence/postgres"
	"course-watch/internal/infra/db"
	"course-watch/internal/infra/eventbus"
	"course-watch/internal/infra/timetable"
	workerPkg "course-watch/internal/infra/worker"
	"course-watch/internal/observability/logging"
	"course-watch/internal/observability/metrics"
	cfgpkg "course-watch/internal/pkg/config"
	"course-watch/internal/repository"
	"course-watch/internal/usecase/course"
	scheduleUC "course-watch/internal/usecase/schedule"
	"course-watch/internal/usecase/schedulesync"
	pkgconfig "course-watch/pkg/config"
)

func main() {
	logger := logging.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("sync_timeout", workerConfig.SyncTimeout),
		slog.Duration("fetch_timeout", workerConfig.FetchTimeout),
		slog.Int("empty_fetch_confirmations", workerConfig.EmptyFetchConfirmations),
		slog.Int("health_port", workerConfig.HealthPort))

	timetableURL := pkgconfig.GetEnvString("TIMETABLE_BASE_URL", "")
	if err := cfgpkg.ValidateHTTPURL(timetableURL); err != nil {
		logger.Error("invalid TIMETABLE_BASE_URL", slog.Any("error", err))
		os.Exit(1)
	}

	busConfig, err := config.LoadEventBusConfig()
	if err != nil {
		logger.Error("failed to load event bus configuration", slog.Any("error", err))
		os.Exit(1)
	}

	database := initDatabase(ctx, logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	rdb := initRedis(ctx, logger, busConfig.RedisURL)
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}()

	scheduleRepo := pgRepo.NewScheduleRepo(database)
	courseRepo := pgRepo.NewCourseRepo(database)

	seedSchedules(ctx, logger, scheduleRepo)

	source := timetable.NewClient(timetable.Config{
		BaseURL: timetableURL,
		Timeout: workerConfig.FetchTimeout,
	})
	publisher := eventbus.NewPublisher(rdb, busConfig.Topology, busConfig.MaxLen)

	svc := schedulesync.NewService(scheduleRepo, courseRepo, source, course.NewDiffApplier(courseRepo), publisher)
	svc.FetchTimeout = workerConfig.FetchTimeout
	svc.EmptyFetchConfirmations = workerConfig.EmptyFetchConfirmations

	metrics.StartServer(ctx, logger, workerConfig.MetricsPort)
	go metrics.CollectDBStats(ctx, database, 15*time.Second)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	healthServer.AddCheck("database", database.PingContext)
	healthServer.AddCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	runCronWorker(ctx, logger, svc, workerConfig, workerMetrics, healthServer)
}

// initDatabase opens the pool and applies pending migrations.
func initDatabase(ctx context.Context, logger *slog.Logger) *sql.DB {
	database, err := db.Open(ctx, os.Getenv("DATABASE_URL"), db.ConnectionConfigFromEnv())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.MigrateUp(ctx, database); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// initRedis connects to the stream broker and verifies it with a ping.
func initRedis(ctx context.Context, logger *slog.Logger, redisURL string) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Error("invalid REDIS_URL", slog.Any("error", err))
		os.Exit(1)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Error("failed to connect to redis", slog.String("addr", opts.Addr), slog.Any("error", err))
		os.Exit(1)
	}
	return rdb
}

// seedSchedules registers the schedules listed in SCHEDULE_SEED_FILE.
// Seeding problems are logged; the worker still starts.
func seedSchedules(ctx context.Context, logger *slog.Logger, repo repository.ScheduleRepository) {
	path := pkgconfig.GetEnvString("SCHEDULE_SEED_FILE", "")
	seeds, err := config.LoadScheduleSeeds(path)
	if err != nil {
		logger.Error("failed to load schedule seeds", slog.String("path", path), slog.Any("error", err))
		return
	}
	if len(seeds) == 0 {
		return
	}

	svc := &scheduleUC.Service{Repo: repo}
	stats, err := svc.EnsureSeeded(ctx, seeds)
	if err != nil {
		logger.Error("schedule seeding failed", slog.Any("error", err))
		return
	}
	logger.Info("schedule seeding completed",
		slog.Int("created", stats.Created),
		slog.Int("existing", stats.Existing),
		slog.Int("invalid", stats.Invalid))
}

// runCronWorker schedules sync ticks and blocks until ctx is cancelled.
// A tick that is still running when the next one is due is skipped.
func runCronWorker(ctx context.Context, logger *slog.Logger, svc *schedulesync.Service, cfg *workerPkg.WorkerConfig, wm *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(workerPkg.NewCronLogger(logger, wm))),
	)
	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runSyncJob(ctx, logger, svc, cfg, wm)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	healthServer.SetReady(false)
	logger.Info("worker shutting down, waiting for running sync")
	<-c.Stop().Done()
	logger.Info("worker stopped")
}

// runSyncJob executes a single tick with timeout and error handling.
func runSyncJob(ctx context.Context, logger *slog.Logger, svc *schedulesync.Service, cfg *workerPkg.WorkerConfig, wm *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	wm.RecordJobRun("started")
	logger.Info("sync started")

	ctx, cancel := context.WithTimeout(ctx, cfg.SyncTimeout)
	defer cancel()

	stats, err := svc.SyncAllSchedules(ctx)
	wm.RecordJobDuration(time.Since(startTime).Seconds())
	if err != nil {
		logger.Error("sync failed", slog.String("error", logging.SanitizeError(err)))
		wm.RecordJobRun("failure")
		return
	}

	wm.RecordJobRun("success")
	wm.RecordSchedulesProcessed(stats.Schedules)
	wm.RecordLastSuccess()

	logger.Info("sync completed",
		slog.Int("schedules", stats.Schedules),
		slog.Int("changed", stats.Changed),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("failed", stats.Failed),
		slog.Int("empty_skipped", stats.EmptySkipped),
		slog.Int("publish_failures", stats.PublishFailures),
		slog.Duration("duration", stats.Duration))
}

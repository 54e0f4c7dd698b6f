package schedulesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"course-watch/internal/domain/entity"
	"course-watch/internal/infra/timetable"
	"course-watch/internal/observability/metrics"
	"course-watch/internal/observability/tracing"
	"course-watch/internal/repository"
	"course-watch/internal/resilience/retry"
	"course-watch/internal/usecase/course"
)

const (
	defaultFetchTimeout            = 30 * time.Second
	defaultEmptyFetchConfirmations = 3
)

// CourseSource returns the current course list of a schedule.
type CourseSource interface {
	FetchCourses(ctx context.Context, ref entity.ExternalScheduleRef) ([]entity.CourseFields, error)
}

// Applier persists the difference between stored and fetched courses.
type Applier interface {
	Apply(ctx context.Context, scheduleID uuid.UUID, current []*entity.Course, fetched []entity.CourseFields) (course.ChangeSet, error)
}

// EventPublisher emits change events keyed by schedule id.
type EventPublisher interface {
	PublishCoursesChanged(ctx context.Context, event entity.CoursesChangedEvent) error
}

// Service runs one sync tick over every schedule.
type Service struct {
	Schedules repository.ScheduleRepository
	Courses   repository.CourseRepository
	Source    CourseSource
	Applier   Applier
	Publisher EventPublisher

	// FetchTimeout bounds each remote fetch; zero means 30s.
	FetchTimeout time.Duration

	// EmptyFetchConfirmations is how many consecutive empty fetches a
	// schedule with stored courses needs before the empty set is applied.
	// Zero means 3; 1 applies the first empty fetch.
	EmptyFetchConfirmations int

	// PublishRetry is used for the event publish after a committed apply.
	// A zero value means retry.EventPublishConfig.
	PublishRetry retry.Config

	// Tracer defaults to the global tracer.
	Tracer trace.Tracer

	mu          sync.Mutex
	emptyStreak map[uuid.UUID]int
}

// NewService creates a Service with the default timeouts and retry policy.
func NewService(
	schedules repository.ScheduleRepository,
	courses repository.CourseRepository,
	source CourseSource,
	applier Applier,
	publisher EventPublisher,
) *Service {
	return &Service{
		Schedules:    schedules,
		Courses:      courses,
		Source:       source,
		Applier:      applier,
		Publisher:    publisher,
		PublishRetry: retry.EventPublishConfig(),
	}
}

// SyncStats contains statistics about one tick.
type SyncStats struct {
	Schedules       int
	Unchanged       int
	Changed         int
	Failed          int
	EmptySkipped    int
	PublishFailures int
	Duration        time.Duration
}

// SyncAllSchedules syncs every schedule one after another. A failing
// schedule is logged and counted and the remaining schedules still run.
// Only a failure to list the schedules is returned.
func (s *Service) SyncAllSchedules(ctx context.Context) (*SyncStats, error) {
	start := time.Now()
	ctx, span := tracing.OrDefault(s.Tracer).Start(ctx, "schedulesync.SyncAllSchedules")
	defer span.End()

	schedules, err := s.Schedules.List(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrListSchedules, err)
		tracing.RecordError(span, err)
		return nil, err
	}
	metrics.UpdateSchedulesTotal(len(schedules))

	stats := &SyncStats{Schedules: len(schedules)}
	for i, schedule := range schedules {
		if ctx.Err() != nil {
			slog.WarnContext(ctx, "sync tick interrupted",
				slog.Int("remaining", len(schedules)-i),
				slog.Any("error", ctx.Err()))
			break
		}

		scheduleStart := time.Now()
		result := s.syncSchedule(ctx, schedule, stats)
		metrics.RecordScheduleSync(result, time.Since(scheduleStart))
	}

	stats.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("schedules", stats.Schedules),
		attribute.Int("changed", stats.Changed),
		attribute.Int("failed", stats.Failed))

	slog.InfoContext(ctx, "schedule sync completed",
		slog.Int("schedules", stats.Schedules),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("changed", stats.Changed),
		slog.Int("failed", stats.Failed),
		slog.Int("empty_skipped", stats.EmptySkipped),
		slog.Int("publish_failures", stats.PublishFailures),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

// syncSchedule walks one schedule through fetching, diffing and applying,
// then publishes the change event. It returns the metrics result label.
func (s *Service) syncSchedule(ctx context.Context, schedule *entity.Schedule, stats *SyncStats) string {
	ctx, span := tracing.OrDefault(s.Tracer).Start(ctx, "schedulesync.syncSchedule",
		trace.WithAttributes(
			attribute.String("schedule_id", schedule.ID.String()),
			attribute.String("external_ref", schedule.ExternalRef.String())))
	defer span.End()

	logger := slog.Default().With(
		slog.String("schedule_id", schedule.ID.String()),
		slog.String("external_ref", schedule.ExternalRef.String()))

	fail := func(phase Phase, result string, err error) string {
		stats.Failed++
		span.SetAttributes(attribute.String("phase", string(phase)))
		tracing.RecordError(span, err)
		logger.WarnContext(ctx, "schedule sync failed",
			slog.String("phase", string(phase)),
			slog.Any("error", err))
		return result
	}

	fetched, err := s.fetch(ctx, schedule.ExternalRef)
	if err != nil {
		if errors.Is(err, timetable.ErrInvalidRecord) {
			return fail(PhaseFetching, metrics.SyncResultInvalid, err)
		}
		return fail(PhaseFetching, metrics.SyncResultFetchError, err)
	}

	current, err := s.Courses.ListBySchedule(ctx, schedule.ID)
	if err != nil {
		return fail(PhaseDiffing, metrics.SyncResultApplyError, fmt.Errorf("list courses: %w", err))
	}

	if !s.confirmEmpty(schedule.ID, len(fetched), len(current)) {
		stats.EmptySkipped++
		span.SetAttributes(attribute.String("phase", string(PhaseDiffing)))
		logger.WarnContext(ctx, "empty fetch for schedule with courses, keeping stored courses",
			slog.Int("stored", len(current)))
		return metrics.SyncResultEmptySkipped
	}

	changes, err := s.Applier.Apply(ctx, schedule.ID, current, fetched)
	if err != nil {
		if errors.Is(err, course.ErrInvalidCourse) {
			return fail(PhaseApplying, metrics.SyncResultInvalid, err)
		}
		return fail(PhaseApplying, metrics.SyncResultApplyError, err)
	}

	if changes.Empty() {
		stats.Unchanged++
		span.SetAttributes(attribute.String("phase", string(PhaseUnchanged)))
		logger.DebugContext(ctx, "schedule unchanged")
		return metrics.SyncResultUnchanged
	}

	stats.Changed++
	metrics.RecordCourseChanges(len(changes.Created), len(changes.Updated), len(changes.Deleted))

	event := changes.Event(schedule.ID)
	err = retry.WithBackoff(ctx, s.publishRetry(), func() error {
		return s.Publisher.PublishCoursesChanged(ctx, event)
	})
	if err != nil {
		stats.PublishFailures++
		metrics.RecordEventPublishFailure()
		tracing.RecordError(span, err)
		logger.ErrorContext(ctx, "publish courses changed event failed, changes stay committed",
			slog.Any("error", err))
		return metrics.SyncResultChanged
	}

	span.SetAttributes(attribute.String("phase", string(PhaseEventEmitted)))
	logger.InfoContext(ctx, "courses changed event emitted",
		slog.Int("created", len(changes.Created)),
		slog.Int("updated", len(changes.Updated)),
		slog.Int("deleted", len(changes.Deleted)))
	return metrics.SyncResultChanged
}

func (s *Service) publishRetry() retry.Config {
	if s.PublishRetry.MaxAttempts <= 0 {
		return retry.EventPublishConfig()
	}
	return s.PublishRetry
}

func (s *Service) fetch(ctx context.Context, ref entity.ExternalScheduleRef) ([]entity.CourseFields, error) {
	timeout := s.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fetched, err := s.Source.FetchCourses(fetchCtx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch courses: %w", err)
	}
	return fetched, nil
}

// confirmEmpty reports whether the fetched set may be applied. An empty
// fetch against stored courses counts towards the schedule's streak and is
// held back until the streak reaches EmptyFetchConfirmations. Any other
// fetch resets the streak.
func (s *Service) confirmEmpty(scheduleID uuid.UUID, fetched, stored int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fetched > 0 || stored == 0 {
		delete(s.emptyStreak, scheduleID)
		return true
	}

	need := s.EmptyFetchConfirmations
	if need <= 0 {
		need = defaultEmptyFetchConfirmations
	}
	if s.emptyStreak == nil {
		s.emptyStreak = make(map[uuid.UUID]int)
	}
	s.emptyStreak[scheduleID]++
	if s.emptyStreak[scheduleID] < need {
		return false
	}
	delete(s.emptyStreak, scheduleID)
	return true
}

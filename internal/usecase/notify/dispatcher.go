package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"course-watch/internal/domain/entity"
	"course-watch/internal/infra/notifier"
	"course-watch/internal/observability/logging"
	"course-watch/internal/observability/tracing"
)

const (
	defaultMaxConcurrent   = 10
	defaultDeliveryTimeout = 30 * time.Second
)

// WebhookFinder lists the subscribers of a schedule. The webhook registry
// satisfies it.
type WebhookFinder interface {
	FindBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*entity.Webhook, error)
}

// ScheduleLookup resolves a schedule's display name. Get returns (nil, nil)
// for unknown ids.
type ScheduleLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Schedule, error)
}

// Sender delivers one message to one webhook.
type Sender interface {
	Send(ctx context.Context, identity entity.DiscordWebhookIdentity, msg entity.WebhookMessage) error
}

// Config bounds the dispatcher's fan-out.
type Config struct {
	// MaxConcurrent caps simultaneous deliveries for one event.
	MaxConcurrent int
	// DeliveryTimeout bounds each delivery.
	DeliveryTimeout time.Duration
}

// DispatchStats summarizes one handled event.
type DispatchStats struct {
	Webhooks  int
	Delivered int64
	Failed    int64
	Duration  time.Duration
}

// Dispatcher fans a CoursesChangedEvent out to the subscribed webhooks.
type Dispatcher struct {
	webhooks  WebhookFinder
	schedules ScheduleLookup
	sender    Sender
	cfg       Config

	// Tracer defaults to the global tracer.
	Tracer trace.Tracer
	// Now is overridable in tests.
	Now func() time.Time
}

// NewDispatcher creates a Dispatcher. Zero config values fall back to 10
// concurrent deliveries and a 30s timeout.
func NewDispatcher(webhooks WebhookFinder, schedules ScheduleLookup, sender Sender, cfg Config) *Dispatcher {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	return &Dispatcher{
		webhooks:  webhooks,
		schedules: schedules,
		sender:    sender,
		cfg:       cfg,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleCoursesChanged notifies every webhook subscribed to the event's
// schedule. Each webhook gets exactly one attempt; a failed delivery is
// logged and counted but neither retried nor returned, and never keeps the
// other webhooks from being tried. An error is returned only when the
// subscribers cannot be determined, so the caller can redeliver the event.
func (d *Dispatcher) HandleCoursesChanged(ctx context.Context, event entity.CoursesChangedEvent) (*DispatchStats, error) {
	start := time.Now()
	ctx, span := tracing.OrDefault(d.Tracer).Start(ctx, "notify.HandleCoursesChanged",
		trace.WithAttributes(attribute.String("schedule_id", event.ScheduleID.String())))
	defer span.End()

	if event.ScheduleID == uuid.Nil {
		tracing.RecordError(span, ErrInvalidEvent)
		return nil, ErrInvalidEvent
	}
	RecordDispatch()

	webhooks, err := d.webhooks.FindBySchedule(ctx, event.ScheduleID)
	if err != nil {
		err = fmt.Errorf("%w: schedule %s: %w", ErrLookupFailed, event.ScheduleID, err)
		tracing.RecordError(span, err)
		return nil, err
	}

	stats := &DispatchStats{Webhooks: len(webhooks)}
	span.SetAttributes(attribute.Int("webhooks", len(webhooks)))
	if len(webhooks) == 0 {
		logging.FromContext(ctx).DebugContext(ctx, "no webhooks subscribed to schedule",
			slog.String("schedule_id", event.ScheduleID.String()))
		stats.Duration = time.Since(start)
		return stats, nil
	}

	msg := BuildMessage(d.scheduleName(ctx, event.ScheduleID), event, d.Now())

	var delivered, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(d.cfg.MaxConcurrent)
	for _, w := range webhooks {
		g.Go(func() error {
			if d.deliver(ctx, w, msg) {
				delivered.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Delivered = delivered.Load()
	stats.Failed = failed.Load()
	stats.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int64("delivered", stats.Delivered),
		attribute.Int64("failed", stats.Failed))

	logging.FromContext(ctx).InfoContext(ctx, "course change notifications dispatched",
		slog.String("schedule_id", event.ScheduleID.String()),
		slog.Int("webhooks", stats.Webhooks),
		slog.Int64("delivered", stats.Delivered),
		slog.Int64("failed", stats.Failed),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

func (d *Dispatcher) scheduleName(ctx context.Context, id uuid.UUID) string {
	schedule, err := d.schedules.Get(ctx, id)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "schedule lookup failed, using id as name",
			slog.String("schedule_id", id.String()),
			slog.Any("error", err))
	}
	if schedule == nil {
		return id.String()
	}
	return schedule.DisplayName()
}

// deliver sends msg to w once and reports success. A panicking sender is
// treated as a failed delivery.
func (d *Dispatcher) deliver(ctx context.Context, w *entity.Webhook, msg entity.WebhookMessage) (ok bool) {
	IncrementActiveGoroutines()
	defer DecrementActiveGoroutines()

	startTime := time.Now()
	defer func() {
		if r := recover(); r != nil {
			ok = false
			RecordDelivery("panic", time.Since(startTime))
			logging.FromContext(ctx).ErrorContext(ctx, "panic in webhook delivery",
				slog.String("webhook_id", w.ID.String()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.DeliveryTimeout)
	defer cancel()

	err := d.sender.Send(sendCtx, w.Identity, msg)
	duration := time.Since(startTime)
	RecordDelivery(notifier.StatusLabel(err), duration)

	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "webhook delivery failed",
			slog.String("webhook_id", w.ID.String()),
			slog.String("webhook", w.Identity.String()),
			slog.String("status", notifier.StatusLabel(err)),
			slog.Duration("send_duration", duration),
			slog.Any("error", err))
		return false
	}

	logging.FromContext(ctx).DebugContext(ctx, "webhook delivered",
		slog.String("webhook_id", w.ID.String()),
		slog.Duration("send_duration", duration))
	return true
}

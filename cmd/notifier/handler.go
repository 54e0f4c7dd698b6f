package main

import (
	"context"
	"errors"
	"log/slog"

	"course-watch/internal/domain/entity"
	"course-watch/internal/infra/eventbus"
	"course-watch/internal/observability/logging"
	"course-watch/internal/usecase/notify"
)

// eventDispatcher is satisfied by *notify.Dispatcher.
type eventDispatcher interface {
	HandleCoursesChanged(ctx context.Context, event entity.CoursesChangedEvent) (*notify.DispatchStats, error)
}

// newEventHandler adapts the dispatcher to the stream consumer. An event
// that can never be dispatched is acknowledged and dropped; any other
// error leaves the entry pending for redelivery.
//
// Every log line written while handling an entry carries its event and
// schedule ids.
func newEventHandler(d eventDispatcher) eventbus.Handler {
	return func(ctx context.Context, msg eventbus.Message) error {
		logger := logging.WithFields(logging.FromContext(ctx), map[string]interface{}{
			"event_id":    msg.EventID,
			"schedule_id": msg.Event.ScheduleID.String(),
		})
		ctx = logging.WithLogger(ctx, logger)

		stats, err := d.HandleCoursesChanged(ctx, msg.Event)
		if err != nil {
			if errors.Is(err, notify.ErrInvalidEvent) {
				logger.WarnContext(ctx, "dropping invalid event",
					slog.String("entry_id", msg.EntryID))
				return nil
			}
			return err
		}

		logger.InfoContext(ctx, "event dispatched",
			slog.Int("webhooks", stats.Webhooks),
			slog.Int64("delivered", stats.Delivered),
			slog.Int64("failed", stats.Failed),
			slog.Duration("duration", stats.Duration))
		return nil
	}
}

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-watch/internal/domain/entity"
	"course-watch/internal/infra/eventbus"
	"course-watch/internal/observability/logging"
	"course-watch/internal/usecase/notify"
)

type stubDispatcher struct {
	err    error
	events []entity.CoursesChangedEvent
	onCall func(ctx context.Context)
}

func (s *stubDispatcher) HandleCoursesChanged(ctx context.Context, event entity.CoursesChangedEvent) (*notify.DispatchStats, error) {
	s.events = append(s.events, event)
	if s.onCall != nil {
		s.onCall(ctx)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &notify.DispatchStats{Webhooks: 1, Delivered: 1}, nil
}

func TestEventHandler(t *testing.T) {
	msg := eventbus.Message{
		EntryID: "1-0",
		EventID: "evt-1",
		Event:   entity.CoursesChangedEvent{ScheduleID: uuid.New()},
	}

	t.Run("TC-1: dispatched event is acknowledged", func(t *testing.T) {
		d := &stubDispatcher{}
		err := newEventHandler(d)(context.Background(), msg)

		require.NoError(t, err)
		require.Len(t, d.events, 1)
		assert.Equal(t, msg.Event.ScheduleID, d.events[0].ScheduleID)
	})

	t.Run("TC-2: invalid event is dropped", func(t *testing.T) {
		d := &stubDispatcher{err: notify.ErrInvalidEvent}
		assert.NoError(t, newEventHandler(d)(context.Background(), msg))
	})

	t.Run("TC-3: lookup failure keeps the entry pending", func(t *testing.T) {
		d := &stubDispatcher{err: fmt.Errorf("%w: db down", notify.ErrLookupFailed)}
		err := newEventHandler(d)(context.Background(), msg)
		assert.True(t, errors.Is(err, notify.ErrLookupFailed))
	})

	t.Run("TC-4: dispatcher logs carry the event and schedule ids", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := logging.WithLogger(context.Background(), logging.New(&buf, "info", "json"))
		d := &stubDispatcher{onCall: func(ctx context.Context) {
			logging.FromContext(ctx).InfoContext(ctx, "delivering")
		}}

		require.NoError(t, newEventHandler(d)(ctx, msg))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		for _, line := range lines {
			assert.Contains(t, line, `"event_id":"evt-1"`)
			assert.Contains(t, line, `"schedule_id":"`+msg.Event.ScheduleID.String()+`"`)
		}
	})
}

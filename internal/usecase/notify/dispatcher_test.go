package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"course-watch/internal/domain/entity"
	"course-watch/internal/infra/notifier"
	"course-watch/internal/observability/logging"
)

/* ─────────────────────────── stubs ─────────────────────────── */

type stubFinder struct {
	webhooks []*entity.Webhook
	err      error
}

func (s *stubFinder) FindBySchedule(_ context.Context, _ uuid.UUID) ([]*entity.Webhook, error) {
	return s.webhooks, s.err
}

type stubSchedules struct {
	schedule *entity.Schedule
	err      error
}

func (s *stubSchedules) Get(_ context.Context, _ uuid.UUID) (*entity.Schedule, error) {
	return s.schedule, s.err
}

// recordingSender records every attempt and answers from fail by discord id.
type recordingSender struct {
	mu       sync.Mutex
	attempts []string
	messages []entity.WebhookMessage
	fail     map[string]error
	panicOn  string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func (s *recordingSender) Send(_ context.Context, identity entity.DiscordWebhookIdentity, msg entity.WebhookMessage) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		max := s.maxInFlight.Load()
		if n <= max || s.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.attempts = append(s.attempts, identity.DiscordID)
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	if identity.DiscordID == s.panicOn {
		panic("sender exploded")
	}
	return s.fail[identity.DiscordID]
}

func (s *recordingSender) attempted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.attempts...)
}

/* ─────────────────────────── fixtures ─────────────────────────── */

var (
	scheduleID = uuid.MustParse("6f1c1e4e-1d0e-4b54-9d7f-0a8a3c1b2f10")
	fixedNow   = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
)

func webhook(discordID string) *entity.Webhook {
	return &entity.Webhook{
		ID:          uuid.New(),
		Identity:    entity.DiscordWebhookIdentity{DiscordID: discordID, Token: "token-" + discordID},
		AddedBy:     "user-1",
		ScheduleIDs: []uuid.UUID{scheduleID},
	}
}

func testSchedule() *entity.Schedule {
	return &entity.Schedule{ID: scheduleID, Name: "Computer Science", Semester: 3, GroupNumber: 2}
}

func newTestDispatcher(finder WebhookFinder, schedules ScheduleLookup, sender Sender, cfg Config) *Dispatcher {
	d := NewDispatcher(finder, schedules, sender, cfg)
	d.Now = func() time.Time { return fixedNow }
	return d
}

func changedEvent() entity.CoursesChangedEvent {
	return entity.CoursesChangedEvent{
		ScheduleID: scheduleID,
		Created:    []uuid.UUID{uuid.New(), uuid.New()},
		Updated:    []uuid.UUID{uuid.New()},
		Deleted:    []uuid.UUID{},
	}
}

/* ─────────────────────────── tests ─────────────────────────── */

func TestDispatcher_HandleCoursesChanged(t *testing.T) {
	t.Run("TC-1: a failing webhook does not stop the others", func(t *testing.T) {
		sender := &recordingSender{fail: map[string]error{
			"2": &notifier.ClientError{StatusCode: 400, Message: "Discord API client error 400"},
		}}
		finder := &stubFinder{webhooks: []*entity.Webhook{webhook("1"), webhook("2"), webhook("3")}}
		d := newTestDispatcher(finder, &stubSchedules{schedule: testSchedule()}, sender, Config{MaxConcurrent: 1})

		stats, err := d.HandleCoursesChanged(context.Background(), changedEvent())

		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3"}, sender.attempted())
		assert.Equal(t, 3, stats.Webhooks)
		assert.Equal(t, int64(2), stats.Delivered)
		assert.Equal(t, int64(1), stats.Failed)
	})

	t.Run("TC-2: no subscribers means no calls", func(t *testing.T) {
		sender := &recordingSender{}
		d := newTestDispatcher(&stubFinder{}, &stubSchedules{schedule: testSchedule()}, sender, Config{})

		stats, err := d.HandleCoursesChanged(context.Background(), changedEvent())

		require.NoError(t, err)
		assert.Empty(t, sender.attempted())
		assert.Equal(t, 0, stats.Webhooks)
	})

	t.Run("TC-3: lookup failure is returned for redelivery", func(t *testing.T) {
		sender := &recordingSender{}
		d := newTestDispatcher(&stubFinder{err: errors.New("connection refused")}, &stubSchedules{}, sender, Config{})

		stats, err := d.HandleCoursesChanged(context.Background(), changedEvent())

		assert.ErrorIs(t, err, ErrLookupFailed)
		assert.Nil(t, stats)
		assert.Empty(t, sender.attempted())
	})

	t.Run("TC-4: event without schedule is rejected", func(t *testing.T) {
		d := newTestDispatcher(&stubFinder{}, &stubSchedules{}, &recordingSender{}, Config{})

		_, err := d.HandleCoursesChanged(context.Background(), entity.CoursesChangedEvent{})

		assert.ErrorIs(t, err, ErrInvalidEvent)
	})

	t.Run("TC-5: panicking sender counts as a failure", func(t *testing.T) {
		sender := &recordingSender{panicOn: "1"}
		finder := &stubFinder{webhooks: []*entity.Webhook{webhook("1"), webhook("2")}}
		d := newTestDispatcher(finder, &stubSchedules{schedule: testSchedule()}, sender, Config{})

		stats, err := d.HandleCoursesChanged(context.Background(), changedEvent())

		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Delivered)
		assert.Equal(t, int64(1), stats.Failed)
	})

	t.Run("TC-6: duplicate events are delivered again", func(t *testing.T) {
		sender := &recordingSender{}
		finder := &stubFinder{webhooks: []*entity.Webhook{webhook("1")}}
		d := newTestDispatcher(finder, &stubSchedules{schedule: testSchedule()}, sender, Config{})
		event := changedEvent()

		_, err := d.HandleCoursesChanged(context.Background(), event)
		require.NoError(t, err)
		_, err = d.HandleCoursesChanged(context.Background(), event)
		require.NoError(t, err)

		assert.Equal(t, []string{"1", "1"}, sender.attempted())
	})

	t.Run("TC-7: fan-out respects MaxConcurrent", func(t *testing.T) {
		sender := &recordingSender{delay: 20 * time.Millisecond}
		var hooks []*entity.Webhook
		for _, id := range []string{"1", "2", "3", "4", "5", "6"} {
			hooks = append(hooks, webhook(id))
		}
		d := newTestDispatcher(&stubFinder{webhooks: hooks}, &stubSchedules{schedule: testSchedule()}, sender, Config{MaxConcurrent: 2})

		stats, err := d.HandleCoursesChanged(context.Background(), changedEvent())

		require.NoError(t, err)
		assert.Equal(t, int64(6), stats.Delivered)
		assert.LessOrEqual(t, sender.maxInFlight.Load(), int32(2))
	})

	t.Run("TC-8: delivery failures log through the context logger", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := logging.WithLogger(context.Background(),
			logging.New(&buf, "info", "json").With(slog.String("event_id", "evt-42")))
		sender := &recordingSender{fail: map[string]error{"1": &notifier.ServerError{StatusCode: 502}}}
		d := newTestDispatcher(&stubFinder{webhooks: []*entity.Webhook{webhook("1")}}, &stubSchedules{schedule: testSchedule()}, sender, Config{})

		_, err := d.HandleCoursesChanged(ctx, changedEvent())

		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"msg":"webhook delivery failed"`)
		assert.Contains(t, buf.String(), `"event_id":"evt-42"`)
	})
}

func TestDispatcher_Message(t *testing.T) {
	t.Run("TC-1: uses the schedule display name", func(t *testing.T) {
		sender := &recordingSender{}
		finder := &stubFinder{webhooks: []*entity.Webhook{webhook("1")}}
		d := newTestDispatcher(finder, &stubSchedules{schedule: testSchedule()}, sender, Config{})

		_, err := d.HandleCoursesChanged(context.Background(), changedEvent())
		require.NoError(t, err)

		require.Len(t, sender.messages, 1)
		msg := sender.messages[0]
		assert.Equal(t, "Computer Science (semester 3, group 2)", msg.Title)
		assert.Equal(t, "2 courses added\n1 course changed", msg.Description)
		assert.Equal(t, fixedNow, msg.Timestamp)
	})

	t.Run("TC-2: falls back to the schedule id", func(t *testing.T) {
		sender := &recordingSender{}
		finder := &stubFinder{webhooks: []*entity.Webhook{webhook("1")}}
		d := newTestDispatcher(finder, &stubSchedules{err: errors.New("timeout")}, sender, Config{})

		_, err := d.HandleCoursesChanged(context.Background(), changedEvent())
		require.NoError(t, err)

		assert.Equal(t, scheduleID.String(), sender.messages[0].Title)
	})
}

func TestBuildMessage(t *testing.T) {
	msg := BuildMessage("Physics", entity.CoursesChangedEvent{ScheduleID: scheduleID, Deleted: []uuid.UUID{uuid.New()}}, fixedNow)
	assert.Equal(t, "Courses updated for **Physics**", msg.Content)
	assert.Equal(t, "1 course removed", msg.Description)
	assert.Equal(t, messageFooter, msg.Footer)

	empty := BuildMessage("Physics", entity.CoursesChangedEvent{ScheduleID: scheduleID}, fixedNow)
	assert.Equal(t, "The timetable was refreshed.", empty.Description)
}

func TestDispatcher_Span(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	finder := &stubFinder{webhooks: []*entity.Webhook{webhook("1")}}
	d := newTestDispatcher(finder, &stubSchedules{schedule: testSchedule()}, &recordingSender{}, Config{})
	d.Tracer = tp.Tracer("test")

	_, err := d.HandleCoursesChanged(context.Background(), changedEvent())
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "notify.HandleCoursesChanged", spans[0].Name)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, scheduleID.String(), attrs["schedule_id"])
	assert.Equal(t, "1", attrs["delivered"])
}

package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"course-watch/internal/domain/entity"
)

// Publisher appends events to the partition of their schedule.
type Publisher struct {
	client   streamClient
	topology Topology
	maxLen   int64

	// Now and NewID are overridable in tests.
	Now   func() time.Time
	NewID func() string
}

// NewPublisher creates a Publisher. maxLen > 0 trims every partition to
// roughly that many entries.
func NewPublisher(client redis.Cmdable, topology Topology, maxLen int64) *Publisher {
	return newPublisher(client, topology, maxLen)
}

func newPublisher(client streamClient, topology Topology, maxLen int64) *Publisher {
	return &Publisher{
		client:   client,
		topology: topology,
		maxLen:   maxLen,
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    func() string { return uuid.NewString() },
	}
}

// PublishCoursesChanged appends event to its partition with a fresh event id.
func (p *Publisher) PublishCoursesChanged(ctx context.Context, event entity.CoursesChangedEvent) error {
	eventID := p.NewID()
	values, err := encode(eventID, p.Now(), event)
	if err != nil {
		return err
	}

	stream := p.topology.Stream(p.topology.Partition(event.ScheduleID))
	args := &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	entryID, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		publishedTotal.WithLabelValues(stream, "error").Inc()
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	publishedTotal.WithLabelValues(stream, "success").Inc()

	slog.InfoContext(ctx, "courses changed event published",
		slog.String("event_id", eventID),
		slog.String("schedule_id", event.ScheduleID.String()),
		slog.String("stream", stream),
		slog.String("entry_id", entryID))
	return nil
}

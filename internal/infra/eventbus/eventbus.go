// Package eventbus carries CoursesChangedEvent from the sync worker to the
// notifier over Redis Streams.
//
// Events are partitioned by schedule id across a fixed number of streams.
// Each partition is consumed by exactly one reader per consumer, strictly in
// order, and an entry is acknowledged only after its handler succeeded, so
// delivery is at-least-once with per-schedule ordering.
//
// The ordering guarantee holds for one active consumer name per group: run
// a single notifier replica per EVENT_CONSUMER_GROUP. Two live names would
// split each partition between them. Entries left pending under an old name
// are claimed by the current consumer at startup.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"course-watch/internal/domain/entity"
)

// Stream entry field names.
const (
	fieldEventID    = "event_id"
	fieldType       = "type"
	fieldScheduleID = "schedule_id"
	fieldOccurredAt = "occurred_at"
	fieldPayload    = "payload"
)

// ErrPoisonMessage marks an entry that can never be handled.
var ErrPoisonMessage = errors.New("undecodable stream entry")

// streamClient is the subset of redis.Cmdable used by the bus.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) *redis.XPendingExtCmd
	XClaimJustID(ctx context.Context, a *redis.XClaimArgs) *redis.StringSliceCmd
}

// Topology names the partitioned streams.
type Topology struct {
	// Prefix of every stream key, e.g. "course-watch:courses".
	Prefix string
	// Partitions is the number of streams; it must not change while
	// unconsumed entries exist or per-schedule ordering breaks.
	Partitions int
}

// DefaultTopology returns 4 partitions under "course-watch:courses".
func DefaultTopology() Topology {
	return Topology{Prefix: "course-watch:courses", Partitions: 4}
}

func (t Topology) partitions() int {
	if t.Partitions < 1 {
		return 1
	}
	return t.Partitions
}

// Partition maps a schedule id onto its partition. The mapping is stable.
func (t Topology) Partition(scheduleID uuid.UUID) int {
	h := fnv.New32a()
	_, _ = h.Write(scheduleID[:])
	return int(h.Sum32() % uint32(t.partitions()))
}

// Stream returns the key of partition n.
func (t Topology) Stream(n int) string {
	return t.Prefix + ":" + strconv.Itoa(n)
}

// Streams lists every partition key in order.
func (t Topology) Streams() []string {
	streams := make([]string, t.partitions())
	for i := range streams {
		streams[i] = t.Stream(i)
	}
	return streams
}

// Message is a decoded stream entry.
type Message struct {
	Stream     string
	EntryID    string
	EventID    string
	OccurredAt time.Time
	Event      entity.CoursesChangedEvent
}

func encode(eventID string, occurredAt time.Time, event entity.CoursesChangedEvent) (map[string]interface{}, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		fieldEventID:    eventID,
		fieldType:       entity.EventTypeCoursesChanged,
		fieldScheduleID: event.ScheduleID.String(),
		fieldOccurredAt: occurredAt.UTC().Format(time.RFC3339Nano),
		fieldPayload:    string(payload),
	}, nil
}

func decode(stream string, msg redis.XMessage) (Message, error) {
	str := func(key string) string {
		v, _ := msg.Values[key].(string)
		return v
	}

	if t := str(fieldType); t != entity.EventTypeCoursesChanged {
		return Message{}, fmt.Errorf("%w: entry %s has type %q", ErrPoisonMessage, msg.ID, t)
	}

	var event entity.CoursesChangedEvent
	if err := json.Unmarshal([]byte(str(fieldPayload)), &event); err != nil {
		return Message{}, fmt.Errorf("%w: entry %s: %v", ErrPoisonMessage, msg.ID, err)
	}
	if event.ScheduleID == uuid.Nil {
		return Message{}, fmt.Errorf("%w: entry %s has no schedule id", ErrPoisonMessage, msg.ID)
	}

	occurredAt, _ := time.Parse(time.RFC3339Nano, str(fieldOccurredAt))
	return Message{
		Stream:     stream,
		EntryID:    msg.ID,
		EventID:    str(fieldEventID),
		OccurredAt: occurredAt,
		Event:      event,
	}, nil
}

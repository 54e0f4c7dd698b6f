package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
)

// Handler processes one message. A nil return acknowledges the entry; an
// error leaves it pending so it is delivered again.
type Handler func(ctx context.Context, msg Message) error

// ConsumerConfig configures Consumer.
type ConsumerConfig struct {
	Topology Topology
	Group    string
	Name     string

	// BatchSize is the COUNT of every XREADGROUP.
	BatchSize int64
	// Block is how long a read waits for new entries.
	Block time.Duration
	// RetryBackoff is the pause after a handler or Redis error.
	RetryBackoff time.Duration
	// ClaimIdle is how long an entry must sit in another consumer's pending
	// list before Run takes it over. Negative disables the takeover.
	ClaimIdle time.Duration
}

// claimScanLimit caps the pending entries inspected per partition at startup.
const claimScanLimit = 1000

// DefaultConsumerConfig returns the settings used when the environment is silent.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Topology:     DefaultTopology(),
		Group:        "notifier",
		Name:         "notifier-1",
		BatchSize:    16,
		Block:        5 * time.Second,
		RetryBackoff: 2 * time.Second,
		ClaimIdle:    5 * time.Minute,
	}
}

// Consumer reads every partition as a member of a consumer group.
type Consumer struct {
	client streamClient
	cfg    ConsumerConfig
}

// NewConsumer creates a Consumer.
func NewConsumer(client redis.Cmdable, cfg ConsumerConfig) *Consumer {
	return newConsumer(client, cfg)
}

func newConsumer(client streamClient, cfg ConsumerConfig) *Consumer {
	def := DefaultConsumerConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Block <= 0 {
		cfg.Block = def.Block
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.ClaimIdle == 0 {
		cfg.ClaimIdle = def.ClaimIdle
	}
	return &Consumer{client: client, cfg: cfg}
}

// EnsureGroups creates the consumer group on every partition, creating the
// streams as needed. An existing group is not an error.
func (c *Consumer) EnsureGroups(ctx context.Context) error {
	for _, stream := range c.cfg.Topology.Streams() {
		err := c.client.XGroupCreateMkStream(ctx, stream, c.cfg.Group, "0").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("create group %s on %s: %w", c.cfg.Group, stream, err)
		}
	}
	return nil
}

// Run consumes all partitions until ctx is cancelled. Partitions are read
// concurrently; entries of one partition are handled one at a time.
//
// Per-schedule ordering assumes a single consumer name per group. Before
// reading, Run takes over entries left pending by earlier names (a renamed
// or crashed replica) once they have been idle for ClaimIdle.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	if err := c.EnsureGroups(ctx); err != nil {
		return err
	}

	slog.InfoContext(ctx, "event consumer started",
		slog.String("group", c.cfg.Group),
		slog.String("consumer", c.cfg.Name),
		slog.Int("partitions", c.cfg.Topology.partitions()))

	g, gctx := errgroup.WithContext(ctx)
	for _, stream := range c.cfg.Topology.Streams() {
		g.Go(func() error {
			c.consumePartition(gctx, stream, handler)
			return nil
		})
	}
	return g.Wait()
}

// consumePartition drains this consumer's pending entries first, then
// follows new ones. After any failure it goes back to the pending list so
// the failed entry is retried before anything newer.
func (c *Consumer) consumePartition(ctx context.Context, stream string, handler Handler) {
	c.claimStale(ctx, stream)

	pending := true
	for ctx.Err() == nil {
		start := ">"
		if pending {
			start = "0"
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Name,
			Streams:  []string{stream, start},
			Count:    c.cfg.BatchSize,
			Block:    c.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			readErrorsTotal.WithLabelValues(stream).Inc()
			slog.WarnContext(ctx, "stream read failed",
				slog.String("stream", stream),
				slog.Any("error", err))
			c.sleep(ctx)
			continue
		}

		var messages []redis.XMessage
		for _, s := range streams {
			messages = append(messages, s.Messages...)
		}
		if pending && len(messages) == 0 {
			pending = false
			continue
		}

		if !c.process(ctx, stream, messages, handler) {
			pending = true
			c.sleep(ctx)
		}
	}
}

// claimStale moves idle entries owned by other consumer names into this
// consumer's pending list, where the first read picks them up in id order.
// Failures are logged; consumption continues with what this consumer owns.
func (c *Consumer) claimStale(ctx context.Context, stream string) {
	if c.cfg.ClaimIdle < 0 {
		return
	}

	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  c.cfg.Group,
		Start:  "-",
		End:    "+",
		Count:  claimScanLimit,
	}).Result()
	if err != nil {
		readErrorsTotal.WithLabelValues(stream).Inc()
		slog.WarnContext(ctx, "pending scan failed",
			slog.String("stream", stream),
			slog.Any("error", err))
		return
	}

	var stale []string
	owners := map[string]struct{}{}
	for _, p := range pending {
		if p.Consumer != c.cfg.Name && p.Idle >= c.cfg.ClaimIdle {
			stale = append(stale, p.ID)
			owners[p.Consumer] = struct{}{}
		}
	}
	if len(stale) == 0 {
		return
	}

	claimed, err := c.client.XClaimJustID(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		MinIdle:  c.cfg.ClaimIdle,
		Messages: stale,
	}).Result()
	if err != nil {
		readErrorsTotal.WithLabelValues(stream).Inc()
		slog.WarnContext(ctx, "claiming stale entries failed",
			slog.String("stream", stream),
			slog.Any("error", err))
		return
	}

	claimedTotal.WithLabelValues(stream).Add(float64(len(claimed)))
	slog.WarnContext(ctx, "claimed entries left pending by other consumers",
		slog.String("stream", stream),
		slog.Int("claimed", len(claimed)),
		slog.Int("previous_owners", len(owners)))
}

// process handles messages in order and reports whether all were acked.
func (c *Consumer) process(ctx context.Context, stream string, messages []redis.XMessage, handler Handler) bool {
	for _, raw := range messages {
		msg, err := decode(stream, raw)
		if err != nil {
			consumedTotal.WithLabelValues(stream, "poison").Inc()
			slog.WarnContext(ctx, "dropping undecodable stream entry",
				slog.String("stream", stream),
				slog.String("entry_id", raw.ID),
				slog.Any("error", err))
			if !c.ack(ctx, stream, raw.ID) {
				return false
			}
			continue
		}

		if err := handler(ctx, msg); err != nil {
			consumedTotal.WithLabelValues(stream, "handler_error").Inc()
			slog.WarnContext(ctx, "event handler failed, entry left pending",
				slog.String("stream", stream),
				slog.String("entry_id", msg.EntryID),
				slog.String("event_id", msg.EventID),
				slog.String("schedule_id", msg.Event.ScheduleID.String()),
				slog.Any("error", err))
			return false
		}

		if !c.ack(ctx, stream, msg.EntryID) {
			return false
		}
		consumedTotal.WithLabelValues(stream, "acked").Inc()
	}
	return true
}

func (c *Consumer) ack(ctx context.Context, stream, entryID string) bool {
	if err := c.client.XAck(ctx, stream, c.cfg.Group, entryID).Err(); err != nil {
		readErrorsTotal.WithLabelValues(stream).Inc()
		slog.WarnContext(ctx, "stream ack failed",
			slog.String("stream", stream),
			slog.String("entry_id", entryID),
			slog.Any("error", err))
		return false
	}
	return true
}

func (c *Consumer) sleep(ctx context.Context) {
	timer := time.NewTimer(c.cfg.RetryBackoff)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

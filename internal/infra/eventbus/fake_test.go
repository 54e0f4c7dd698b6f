package eventbus

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
)

type readResult struct {
	messages []redis.XMessage
	err      error
}

// fakeStreams scripts XREADGROUP answers and records every call. When the
// script runs out it cancels the consumer's context.
type fakeStreams struct {
	mu sync.Mutex

	added  []*redis.XAddArgs
	addErr error

	groups   []string
	groupErr error

	reads  []readResult
	starts []string
	acked  []string
	cancel context.CancelFunc

	pending    []redis.XPendingExt
	pendingErr error
	claimed    []string
	claimedBy  string
}

func (f *fakeStreams) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return redis.NewStringResult("", f.addErr)
	}
	f.added = append(f.added, a)
	return redis.NewStringResult("1700000000000-0", nil)
}

func (f *fakeStreams) XGroupCreateMkStream(_ context.Context, stream, group, _ string) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, stream+"/"+group)
	if f.groupErr != nil {
		return redis.NewStatusResult("", f.groupErr)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStreams) XReadGroup(_ context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, a.Streams[1])
	if len(f.reads) == 0 {
		if f.cancel != nil {
			f.cancel()
		}
		return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
	}
	next := f.reads[0]
	f.reads = f.reads[1:]
	if next.err != nil {
		return redis.NewXStreamSliceCmdResult(nil, next.err)
	}
	return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: a.Streams[0], Messages: next.messages}}, nil)
}

func (f *fakeStreams) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func (f *fakeStreams) XPendingExt(ctx context.Context, _ *redis.XPendingExtArgs) *redis.XPendingExtCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewXPendingExtCmd(ctx)
	if f.pendingErr != nil {
		cmd.SetErr(f.pendingErr)
		return cmd
	}
	cmd.SetVal(f.pending)
	return cmd
}

func (f *fakeStreams) XClaimJustID(_ context.Context, a *redis.XClaimArgs) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimed = append(f.claimed, a.Messages...)
	f.claimedBy = a.Consumer
	return redis.NewStringSliceResult(a.Messages, nil)
}

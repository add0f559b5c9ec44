package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/set"

	"github.com/theoremus-urban-solutions/siri-hub/ttlkv"
)

// Tracker records, per consumer, the set of record keys changed since that
// consumer's last read, plus a last-poll timestamp with its own expiry
// window. A consumer whose poll record has expired is pruned on the next
// write so abandoned consumers never accumulate unbounded pending sets.
type Tracker struct {
	pending  ttlkv.Map[[]string]
	lastPoll ttlkv.Map[time.Time]
	window   time.Duration
	clock    clock.Clock
	log      *slog.Logger
}

// NewTracker creates a Tracker whose last-poll records expire after
// window of inactivity.
func NewTracker(pending ttlkv.Map[[]string], lastPoll ttlkv.Map[time.Time], window time.Duration, clk clock.Clock, log *slog.Logger) *Tracker {
	if clk == nil {
		clk = clock.WallClock
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		pending:  pending,
		lastPoll: lastPoll,
		window:   window,
		clock:    clk,
		log:      log,
	}
}

// Touch refreshes the consumer's last-poll timestamp.
func (t *Tracker) Touch(ctx context.Context, consumerID string) {
	t.lastPoll.Set(ctx, consumerID, t.clock.Now(), t.window)
}

// Pending returns the consumer's pending keys. The second result reports
// whether the consumer is tracked at all; an untracked consumer is
// entitled to a full snapshot.
func (t *Tracker) Pending(ctx context.Context, consumerID string) ([]string, bool) {
	keys, ok := t.pending.Get(ctx, consumerID)
	return keys, ok
}

// Register starts tracking a consumer with an empty pending set.
func (t *Tracker) Register(ctx context.Context, consumerID string) {
	t.pending.Set(ctx, consumerID, []string{}, 0)
}

// Drain removes the returned keys from the consumer's pending set. Only
// the keys actually returned to the consumer are removed, so pending
// changes for datasets a filtered poll did not ask for survive to the
// next poll. The removal is atomic with respect to concurrent fan-out.
func (t *Tracker) Drain(ctx context.Context, consumerID string, returned []string) {
	if len(returned) == 0 {
		return
	}
	t.pending.Update(ctx, consumerID, func(old []string, exists bool) ([]string, time.Duration, ttlkv.Op) {
		if !exists {
			return nil, 0, ttlkv.Keep
		}
		remaining := set.NewStrings(old...).Difference(set.NewStrings(returned...))
		return remaining.Values(), 0, ttlkv.Put
	})
}

// FanOut unions the changed keys into the pending set of every tracked
// consumer whose poll record is still live, and prunes consumers whose
// poll record has expired.
func (t *Tracker) FanOut(ctx context.Context, changed []string) {
	if len(changed) == 0 {
		return
	}
	for _, consumerID := range t.pending.Keys(ctx) {
		if _, alive := t.lastPoll.Get(ctx, consumerID); !alive {
			t.pending.Delete(ctx, consumerID)
			t.log.Debug("pruned idle consumer", "consumer", consumerID)
			continue
		}
		t.pending.Update(ctx, consumerID, func(old []string, exists bool) ([]string, time.Duration, ttlkv.Op) {
			if !exists {
				return nil, 0, ttlkv.Keep
			}
			union := set.NewStrings(old...).Union(set.NewStrings(changed...))
			return union.Values(), 0, ttlkv.Put
		})
	}
}

package ttlkv

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/puzpuzpuz/xsync/v4"
)

const defaultSweepInterval = 30 * time.Second

type localEntry[V any] struct {
	value    V
	deadline time.Time // zero means no expiry
}

func (e localEntry[V]) expired(now time.Time) bool {
	return !e.deadline.IsZero() && !e.deadline.After(now)
}

// Local is an in-process Map implementation. Entries carry an absolute
// deadline; a background reaper reclaims expired entries, and reads
// re-check the deadline so reaper lag never serves stale values.
type Local[V any] struct {
	entries *xsync.Map[string, localEntry[V]]
	clock   clock.Clock

	done     chan struct{}
	stopOnce sync.Once
}

// NewLocal creates a Local map sweeping expired entries every
// sweepInterval (a helpful default is applied when non-positive).
// Close must be called to stop the reaper.
func NewLocal[V any](clk clock.Clock, sweepInterval time.Duration) *Local[V] {
	if clk == nil {
		clk = clock.WallClock
	}
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	m := &Local[V]{
		entries: xsync.NewMap[string, localEntry[V]](),
		clock:   clk,
		done:    make(chan struct{}),
	}
	go m.reap(sweepInterval)
	return m
}

// Close stops the background reaper.
func (m *Local[V]) Close() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *Local[V]) reap(interval time.Duration) {
	for {
		select {
		case <-m.done:
			return
		case <-m.clock.After(interval):
			m.sweep()
		}
	}
}

// sweep deletes expired entries. The deadline is re-checked inside Compute
// so an entry refreshed after the sweep began is never deleted.
func (m *Local[V]) sweep() {
	m.entries.Range(func(key string, _ localEntry[V]) bool {
		m.entries.Compute(key, func(old localEntry[V], loaded bool) (localEntry[V], xsync.ComputeOp) {
			if loaded && old.expired(m.clock.Now()) {
				return old, xsync.DeleteOp
			}
			return old, xsync.CancelOp
		})
		return true
	})
}

func (m *Local[V]) Get(_ context.Context, key string) (V, bool) {
	e, ok := m.entries.Load(key)
	if !ok || e.expired(m.clock.Now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (m *Local[V]) GetAll(ctx context.Context, keys []string) map[string]V {
	out := make(map[string]V, len(keys))
	for _, key := range keys {
		if v, ok := m.Get(ctx, key); ok {
			out[key] = v
		}
	}
	return out
}

func (m *Local[V]) Set(_ context.Context, key string, value V, ttl time.Duration) {
	m.entries.Store(key, m.newEntry(value, ttl))
}

func (m *Local[V]) Update(_ context.Context, key string, fn UpdateFunc[V]) {
	m.entries.Compute(key, func(old localEntry[V], loaded bool) (localEntry[V], xsync.ComputeOp) {
		exists := loaded && !old.expired(m.clock.Now())
		var cur V
		if exists {
			cur = old.value
		}
		next, ttl, op := fn(cur, exists)
		switch op {
		case Put:
			return m.newEntry(next, ttl), xsync.UpdateOp
		case Remove:
			if loaded {
				return old, xsync.DeleteOp
			}
			return old, xsync.CancelOp
		default:
			if loaded && !exists {
				// Entry was already dead; reclaim it.
				return old, xsync.DeleteOp
			}
			return old, xsync.CancelOp
		}
	})
}

func (m *Local[V]) Delete(_ context.Context, key string) {
	m.entries.Delete(key)
}

func (m *Local[V]) Keys(_ context.Context) []string {
	now := m.clock.Now()
	keys := make([]string, 0, m.entries.Size())
	m.entries.Range(func(key string, e localEntry[V]) bool {
		if !e.expired(now) {
			keys = append(keys, key)
		}
		return true
	})
	return keys
}

func (m *Local[V]) Len(ctx context.Context) int {
	return len(m.Keys(ctx))
}

func (m *Local[V]) newEntry(value V, ttl time.Duration) localEntry[V] {
	e := localEntry[V]{value: value}
	if ttl > 0 {
		e.deadline = m.clock.Now().Add(ttl)
	}
	return e
}

var _ Map[int] = (*Local[int])(nil)

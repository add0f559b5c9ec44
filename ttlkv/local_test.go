package ttlkv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMap(t *testing.T) (*Local[int], *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	m := NewLocal[int](clk, time.Hour)
	t.Cleanup(m.Close)
	return m, clk
}

func TestLocalSetGet(t *testing.T) {
	m, _ := newTestMap(t)
	ctx := context.Background()

	m.Set(ctx, "a", 1, time.Minute)
	v, ok := m.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = m.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestLocalEntryExpires(t *testing.T) {
	m, clk := newTestMap(t)
	ctx := context.Background()

	m.Set(ctx, "a", 1, time.Minute)
	m.Set(ctx, "forever", 2, 0)

	clk.Advance(time.Minute + time.Second)

	_, ok := m.Get(ctx, "a")
	assert.False(t, ok, "expired entry must read as absent")
	v, ok := m.Get(ctx, "forever")
	require.True(t, ok, "zero ttl means no expiry")
	assert.Equal(t, 2, v)

	assert.Equal(t, []string{"forever"}, m.Keys(ctx))
	assert.Equal(t, 1, m.Len(ctx))
}

func TestLocalGetAllSkipsMissing(t *testing.T) {
	m, _ := newTestMap(t)
	ctx := context.Background()

	m.Set(ctx, "a", 1, time.Minute)
	m.Set(ctx, "b", 2, time.Minute)

	got := m.GetAll(ctx, []string{"a", "b", "c"})
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, got)
}

func TestLocalUpdateSemantics(t *testing.T) {
	m, _ := newTestMap(t)
	ctx := context.Background()

	// Insert through Update on an absent key.
	m.Update(ctx, "a", func(old int, exists bool) (int, time.Duration, Op) {
		require.False(t, exists)
		return 1, time.Minute, Put
	})
	v, ok := m.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// Keep leaves the entry untouched.
	m.Update(ctx, "a", func(old int, exists bool) (int, time.Duration, Op) {
		require.True(t, exists)
		require.Equal(t, 1, old)
		return 99, time.Minute, Keep
	})
	v, _ = m.Get(ctx, "a")
	assert.Equal(t, 1, v)

	// Remove deletes it.
	m.Update(ctx, "a", func(old int, exists bool) (int, time.Duration, Op) {
		return 0, 0, Remove
	})
	_, ok = m.Get(ctx, "a")
	assert.False(t, ok)
}

func TestLocalUpdateSeesExpiredAsAbsent(t *testing.T) {
	m, clk := newTestMap(t)
	ctx := context.Background()

	m.Set(ctx, "a", 1, time.Minute)
	clk.Advance(2 * time.Minute)

	m.Update(ctx, "a", func(old int, exists bool) (int, time.Duration, Op) {
		assert.False(t, exists, "expired entry must look absent to updates")
		return 2, time.Minute, Put
	})
	v, ok := m.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestLocalSweepKeepsRefreshedEntries(t *testing.T) {
	clk := testclock.NewClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	m := NewLocal[int](clk, time.Hour)
	t.Cleanup(m.Close)
	ctx := context.Background()

	m.Set(ctx, "a", 1, time.Minute)
	clk.Advance(2 * time.Minute)
	// Refresh after the deadline passed but before the sweep runs.
	m.Set(ctx, "a", 2, time.Minute)
	m.sweep()

	v, ok := m.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestLocalConcurrentUpdatesSerialize(t *testing.T) {
	m, _ := newTestMap(t)
	ctx := context.Background()

	const writers = 16
	const increments = 100
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				m.Update(ctx, "counter", func(old int, exists bool) (int, time.Duration, Op) {
					return old + 1, 0, Put
				})
			}
		}()
	}
	wg.Wait()

	v, ok := m.Get(ctx, "counter")
	require.True(t, ok)
	assert.Equal(t, writers*increments, v)
}

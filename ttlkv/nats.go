package ttlkv

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/juju/clock"
	"github.com/nats-io/nats.go/jetstream"
)

// casAttempts bounds the optimistic-concurrency retry loop in Update.
const casAttempts = 5

type kvEnvelope[V any] struct {
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

func (e kvEnvelope[V]) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !e.ExpiresAt.After(now)
}

// KV is a Map backed by a NATS JetStream KeyValue bucket, for deployments
// where several hub instances share record and subscription state. Values
// are stored as JSON envelopes carrying their expiration horizon; expired
// entries read as absent and are deleted lazily.
type KV[V any] struct {
	kv    jetstream.KeyValue
	clock clock.Clock
	log   *slog.Logger
}

// NewKV opens (or creates) the named bucket and returns a Map over it.
func NewKV[V any](ctx context.Context, js jetstream.JetStream, bucket string, clk clock.Clock, log *slog.Logger) (*KV[V], error) {
	if clk == nil {
		clk = clock.WallClock
	}
	if log == nil {
		log = slog.Default()
	}
	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
	if errors.Is(err, jetstream.ErrBucketExists) {
		kv, err = js.KeyValue(ctx, bucket)
	}
	if err != nil {
		return nil, err
	}
	return &KV[V]{kv: kv, clock: clk, log: log.With("bucket", bucket)}, nil
}

func (m *KV[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	entry, err := m.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, jetstream.ErrKeyNotFound) {
			m.log.Warn("kv get failed", "key", key, "error", err)
		}
		return zero, false
	}
	env, ok := m.decode(key, entry.Value())
	if !ok {
		return zero, false
	}
	if env.expired(m.clock.Now()) {
		// Lazy reclaim; the revision guard keeps us from deleting a
		// concurrent refresh.
		_ = m.kv.Delete(ctx, key, jetstream.LastRevision(entry.Revision()))
		return zero, false
	}
	return env.Value, true
}

func (m *KV[V]) GetAll(ctx context.Context, keys []string) map[string]V {
	out := make(map[string]V, len(keys))
	for _, key := range keys {
		if v, ok := m.Get(ctx, key); ok {
			out[key] = v
		}
	}
	return out
}

func (m *KV[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	data, err := json.Marshal(m.envelope(value, ttl))
	if err != nil {
		m.log.Warn("kv encode failed", "key", key, "error", err)
		return
	}
	if _, err := m.kv.Put(ctx, key, data); err != nil {
		m.log.Warn("kv put failed", "key", key, "error", err)
	}
}

// Update implements the per-key compare-and-swap with JetStream revision
// numbers: read the current revision, apply fn, then Create/Update against
// that revision and retry when another writer got there first.
func (m *KV[V]) Update(ctx context.Context, key string, fn UpdateFunc[V]) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		var (
			cur      V
			exists   bool
			revision uint64
		)
		entry, err := m.kv.Get(ctx, key)
		switch {
		case err == nil:
			revision = entry.Revision()
			if env, ok := m.decode(key, entry.Value()); ok && !env.expired(m.clock.Now()) {
				cur = env.Value
				exists = true
			}
		case errors.Is(err, jetstream.ErrKeyNotFound):
		default:
			m.log.Warn("kv get failed", "key", key, "error", err)
			return
		}

		next, ttl, op := fn(cur, exists)
		switch op {
		case Keep:
			return
		case Remove:
			if revision == 0 {
				return
			}
			if err := m.kv.Delete(ctx, key, jetstream.LastRevision(revision)); err == nil {
				return
			}
		case Put:
			data, err := json.Marshal(m.envelope(next, ttl))
			if err != nil {
				m.log.Warn("kv encode failed", "key", key, "error", err)
				return
			}
			if revision == 0 {
				if _, err := m.kv.Create(ctx, key, data); err == nil {
					return
				} else if !errors.Is(err, jetstream.ErrKeyExists) {
					m.log.Warn("kv create failed", "key", key, "error", err)
					return
				}
			} else {
				if _, err := m.kv.Update(ctx, key, data, revision); err == nil {
					return
				}
			}
		}
		// Lost the race; reload and retry.
	}
	m.log.Warn("kv update contention exhausted retries", "key", key)
}

func (m *KV[V]) Delete(ctx context.Context, key string) {
	if err := m.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		m.log.Warn("kv delete failed", "key", key, "error", err)
	}
}

// Keys lists keys currently present in the bucket. Entries whose envelope
// has expired but has not been reclaimed yet may still be listed; callers
// observe their absence through Get.
func (m *KV[V]) Keys(ctx context.Context) []string {
	keys, err := m.kv.Keys(ctx)
	if err != nil {
		if !errors.Is(err, jetstream.ErrNoKeysFound) {
			m.log.Warn("kv keys failed", "error", err)
		}
		return nil
	}
	return keys
}

func (m *KV[V]) Len(ctx context.Context) int {
	return len(m.Keys(ctx))
}

func (m *KV[V]) envelope(value V, ttl time.Duration) kvEnvelope[V] {
	env := kvEnvelope[V]{Value: value}
	if ttl > 0 {
		env.ExpiresAt = m.clock.Now().Add(ttl)
	}
	return env
}

func (m *KV[V]) decode(key string, data []byte) (kvEnvelope[V], bool) {
	var env kvEnvelope[V]
	if err := json.Unmarshal(data, &env); err != nil {
		m.log.Warn("kv decode failed", "key", key, "error", err)
		return env, false
	}
	return env, true
}

var _ Map[int] = (*KV[int])(nil)

package ttlkv

import (
	"context"
	"time"
)

// Op is the outcome of an UpdateFunc.
type Op int

const (
	// Keep leaves the current entry untouched.
	Keep Op = iota
	// Put stores the returned value with the returned TTL.
	Put
	// Remove deletes the entry.
	Remove
)

// UpdateFunc inspects the current value for a key (exists reports whether a
// live entry was present) and decides what to do with it. A TTL of zero
// means the entry never expires on its own.
type UpdateFunc[V any] func(old V, exists bool) (V, time.Duration, Op)

// Map is a concurrent key-value map with per-entry expiration.
//
// Update is atomic per key: two concurrent updates to the same key are
// serialized, which is what makes compare-then-replace protocols safe on
// top of it.
type Map[V any] interface {
	// Get returns the live value for key, if any.
	Get(ctx context.Context, key string) (V, bool)

	// GetAll returns the live values for the given keys. Missing or
	// expired keys are simply absent from the result.
	GetAll(ctx context.Context, keys []string) map[string]V

	// Set stores value under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value V, ttl time.Duration)

	// Update runs fn against the current entry for key, atomically with
	// respect to other updates of the same key.
	Update(ctx context.Context, key string, fn UpdateFunc[V])

	// Delete removes the entry for key.
	Delete(ctx context.Context, key string)

	// Keys returns the keys of all live entries.
	Keys(ctx context.Context) []string

	// Len returns the number of live entries.
	Len(ctx context.Context) int
}

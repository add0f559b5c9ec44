package store

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/juju/clock"

	"github.com/theoremus-urban-solutions/siri-hub/ttlkv"
)

// Record is one live element held by a category store.
type Record[T any] struct {
	Key               string    `json:"key"`
	DatasetID         string    `json:"datasetId"`
	Payload           T         `json:"payload"`
	ResponseTimestamp time.Time `json:"responseTimestamp"`
	ValidUntil        time.Time `json:"validUntil"`
}

// Descriptor tells the generic store how to treat one category's payload.
// NaturalKey must be deterministic and stable across repeated submissions
// of the same logical entity, and must return "" for elements that cannot
// be keyed (nil, missing identity) so they are skipped.
type Descriptor[T any] struct {
	Name       string
	NaturalKey func(T) string
	RecordedAt func(T) time.Time
	ValidUntil func(T) time.Time
}

// Records holds the current value for each (dataset, natural key) pair of
// one data category, bounded by each record's expiration horizon.
type Records[T any] struct {
	desc    Descriptor[T]
	entries ttlkv.Map[Record[T]]
	clock   clock.Clock
	log     *slog.Logger
}

func newRecords[T any](desc Descriptor[T], entries ttlkv.Map[Record[T]], clk clock.Clock, log *slog.Logger) *Records[T] {
	return &Records[T]{
		desc:    desc,
		entries: entries,
		clock:   clk,
		log:     log.With("category", desc.Name),
	}
}

func recordKey(datasetID, naturalKey string) string {
	return datasetID + ":" + naturalKey
}

func keyInDataset(key, datasetID string) bool {
	return datasetID == "" || strings.HasPrefix(key, datasetID+":")
}

// GetAll returns all live records across all datasets.
func (r *Records[T]) GetAll(ctx context.Context) []Record[T] {
	return r.GetAllForDataset(ctx, "")
}

// GetAllForDataset returns the live records whose key belongs to
// datasetID. An empty datasetID behaves as GetAll.
func (r *Records[T]) GetAllForDataset(ctx context.Context, datasetID string) []Record[T] {
	keys := make([]string, 0)
	for _, key := range r.entries.Keys(ctx) {
		if keyInDataset(key, datasetID) {
			keys = append(keys, key)
		}
	}
	return r.Fetch(ctx, keys)
}

// Fetch returns the live records for the given keys, skipping keys that
// have disappeared or expired since they were collected.
func (r *Records[T]) Fetch(ctx context.Context, keys []string) []Record[T] {
	byKey := r.entries.GetAll(ctx, keys)
	out := make([]Record[T], 0, len(byKey))
	for _, key := range keys {
		if rec, ok := byKey[key]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// Apply runs the replace protocol for a batch of elements and returns the
// keys that were inserted or replaced. Elements without a derivable key
// are skipped; elements whose remaining lifetime is non-positive are
// dropped silently. The per-key compare-and-set runs inside an atomic
// update so concurrent writers to the same key serialize.
func (r *Records[T]) Apply(ctx context.Context, datasetID string, elements []T) []string {
	changed := make([]string, 0, len(elements))
	for _, el := range elements {
		naturalKey := r.desc.NaturalKey(el)
		if naturalKey == "" {
			continue
		}
		recordedAt := r.desc.RecordedAt(el)
		validUntil := r.desc.ValidUntil(el)
		ttl := validUntil.Sub(r.clock.Now())
		if ttl <= 0 {
			// Expired on arrival; never stored, never a change.
			continue
		}
		key := recordKey(datasetID, naturalKey)
		rec := Record[T]{
			Key:               key,
			DatasetID:         datasetID,
			Payload:           el,
			ResponseTimestamp: recordedAt,
			ValidUntil:        validUntil,
		}
		won := false
		r.entries.Update(ctx, key, func(old Record[T], exists bool) (Record[T], time.Duration, ttlkv.Op) {
			if exists && !recordedAt.After(old.ResponseTimestamp) {
				// A newer or equal update has already been processed.
				return old, 0, ttlkv.Keep
			}
			won = true
			return rec, ttl, ttlkv.Put
		})
		if won {
			changed = append(changed, key)
		}
	}
	return changed
}

// Cleanup sweeps all keys, recomputing each record's remaining lifetime at
// sweep time, and deletes records that have expired. It returns the number
// removed. This is a backstop on top of the map's native per-entry expiry;
// the lifetime re-check inside the atomic update means a record refreshed
// after the sweep began is never deleted.
func (r *Records[T]) Cleanup(ctx context.Context) int {
	started := r.clock.Now()
	removed := 0
	for _, key := range r.entries.Keys(ctx) {
		r.entries.Update(ctx, key, func(old Record[T], exists bool) (Record[T], time.Duration, ttlkv.Op) {
			if exists && !old.ValidUntil.After(r.clock.Now()) {
				removed++
				return old, 0, ttlkv.Remove
			}
			return old, 0, ttlkv.Keep
		})
	}
	r.log.Info("cleanup removed expired records",
		"removed", removed,
		"elapsed", r.clock.Now().Sub(started))
	return removed
}

// Size returns the number of live records.
func (r *Records[T]) Size(ctx context.Context) int {
	return r.entries.Len(ctx)
}

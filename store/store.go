package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/juju/clock"

	"github.com/theoremus-urban-solutions/siri-hub/ttlkv"
)

// Backend bundles the three maps one category store lives in. In a
// single-instance deployment these are local maps; in a shared deployment
// they are NATS KV buckets, so several hub instances observe the same
// records and consumer state.
type Backend[T any] struct {
	Entries  ttlkv.Map[Record[T]]
	Pending  ttlkv.Map[[]string]
	LastPoll ttlkv.Map[time.Time]
}

// Options carries the cross-cutting dependencies of a category store.
type Options struct {
	// TrackingWindow is how long a consumer may stay silent before its
	// change tracking is dropped and it reverts to full snapshots.
	TrackingWindow time.Duration
	Clock          clock.Clock
	Logger         *slog.Logger
}

// Store is the distribution service for one data category: it composes
// the record store and the change tracker to apply incoming batches and
// to answer snapshot or delta reads.
type Store[T any] struct {
	records *Records[T]
	tracker *Tracker
	log     *slog.Logger
}

// New assembles a category store from its descriptor and backend.
func New[T any](desc Descriptor[T], backend Backend[T], opts Options) *Store[T] {
	clk := opts.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("category", desc.Name)
	return &Store[T]{
		records: newRecords(desc, backend.Entries, clk, log),
		tracker: NewTracker(backend.Pending, backend.LastPoll, opts.TrackingWindow, clk, log),
		log:     log,
	}
}

// GetAll returns all live records across all datasets.
func (s *Store[T]) GetAll(ctx context.Context) []Record[T] {
	return s.records.GetAll(ctx)
}

// GetAllForDataset returns the live records of one dataset; an empty
// datasetID behaves as GetAll.
func (s *Store[T]) GetAllForDataset(ctx context.Context, datasetID string) []Record[T] {
	return s.records.GetAllForDataset(ctx, datasetID)
}

// AddAll applies a batch of elements for a dataset and returns exactly the
// records that were inserted or replaced, fetched back from the store.
// Changed keys fan out into every tracked consumer's pending set before
// AddAll returns, so a change is never lost once AddAll has reported it.
func (s *Store[T]) AddAll(ctx context.Context, datasetID string, elements []T) []Record[T] {
	changed := s.records.Apply(ctx, datasetID, elements)
	if len(changed) > 0 {
		s.tracker.FanOut(ctx, changed)
		s.log.Debug("applied batch", "dataset", datasetID, "received", len(elements), "changed", len(changed))
	}
	return s.records.Fetch(ctx, changed)
}

// Add is the single-element convenience form of AddAll. It returns the
// stored record, or nil when the element was discarded.
func (s *Store[T]) Add(ctx context.Context, datasetID string, element T) *Record[T] {
	stored := s.AddAll(ctx, datasetID, []T{element})
	if len(stored) == 0 {
		return nil
	}
	return &stored[0]
}

// GetAllUpdates implements the differential read protocol:
//
//   - an empty consumerID is a stateless bulk read
//   - a first-time consumer is registered and receives the full current
//     snapshot for the requested dataset
//   - a returning consumer receives the records for its pending keys
//     matching the requested dataset; only the returned keys are drained,
//     pending changes for other datasets survive to the next poll
//
// The read never blocks waiting for new data.
func (s *Store[T]) GetAllUpdates(ctx context.Context, consumerID, datasetID string) []Record[T] {
	if consumerID == "" {
		return s.GetAllForDataset(ctx, datasetID)
	}

	s.tracker.Touch(ctx, consumerID)

	pending, known := s.tracker.Pending(ctx, consumerID)
	if !known {
		s.tracker.Register(ctx, consumerID)
		s.log.Debug("returning full snapshot", "consumer", consumerID, "dataset", datasetID)
		return s.GetAllForDataset(ctx, datasetID)
	}

	filtered := make([]string, 0, len(pending))
	for _, key := range pending {
		if keyInDataset(key, datasetID) {
			filtered = append(filtered, key)
		}
	}
	changes := s.records.Fetch(ctx, filtered)
	s.tracker.Drain(ctx, consumerID, filtered)
	s.log.Debug("returning changes", "consumer", consumerID, "dataset", datasetID, "changes", len(changes))
	return changes
}

// Cleanup removes records whose expiration has passed and returns the
// count removed.
func (s *Store[T]) Cleanup(ctx context.Context) int {
	return s.records.Cleanup(ctx)
}

// Size returns the number of live records.
func (s *Store[T]) Size(ctx context.Context) int {
	return s.records.Size(ctx)
}

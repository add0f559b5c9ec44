package store_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
	"github.com/theoremus-urban-solutions/siri-hub/store"
	"github.com/theoremus-urban-solutions/siri-hub/ttlkv"
)

const trackingWindow = 10 * time.Minute

func newSituationStore(t *testing.T) (*store.Store[*siri.PtSituationElement], *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))

	entries := ttlkv.NewLocal[store.Record[*siri.PtSituationElement]](clk, time.Hour)
	pending := ttlkv.NewLocal[[]string](clk, time.Hour)
	lastPoll := ttlkv.NewLocal[time.Time](clk, time.Hour)
	t.Cleanup(entries.Close)
	t.Cleanup(pending.Close)
	t.Cleanup(lastPoll.Close)

	s := store.New(store.Situations(), store.Backend[*siri.PtSituationElement]{
		Entries:  entries,
		Pending:  pending,
		LastPoll: lastPoll,
	}, store.Options{
		TrackingWindow: trackingWindow,
		Clock:          clk,
		Logger:         slog.New(slog.DiscardHandler),
	})
	return s, clk
}

func situation(participant, number string, created time.Time, validFor time.Duration) *siri.PtSituationElement {
	return &siri.PtSituationElement{
		CreationTime:    created,
		ParticipantRef:  participant,
		SituationNumber: number,
		Progress:        "open",
		ValidityPeriod: []siri.ValidityPeriod{
			{StartTime: created, EndTime: created.Add(validFor)},
		},
	}
}

func keysOf(records []store.Record[*siri.PtSituationElement]) []string {
	keys := make([]string, 0, len(records))
	for _, r := range records {
		keys = append(keys, r.Key)
	}
	return keys
}

func TestAddStoresNewElement(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()

	rec := s.Add(ctx, "RUT", situation("RUT", "sx-1", clk.Now(), time.Hour))
	require.NotNil(t, rec)
	assert.Equal(t, "RUT:RUT:sx-1", rec.Key)
	assert.Equal(t, "RUT", rec.DatasetID)
	assert.Equal(t, 1, s.Size(ctx))
}

func TestAddNilElementIsNoOp(t *testing.T) {
	s, _ := newSituationStore(t)
	ctx := context.Background()

	rec := s.Add(ctx, "RUT", nil)
	assert.Nil(t, rec)
	assert.Equal(t, 0, s.Size(ctx))
}

func TestNewerTimestampReplaces(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()
	t0 := clk.Now()

	require.NotNil(t, s.Add(ctx, "RUT", situation("RUT", "sx-1", t0, time.Hour)))

	newer := situation("RUT", "sx-1", t0.Add(time.Minute), time.Hour)
	newer.Progress = "closed"
	rec := s.Add(ctx, "RUT", newer)
	require.NotNil(t, rec)
	assert.Equal(t, "closed", rec.Payload.Progress)
	assert.Equal(t, 1, s.Size(ctx))
}

func TestEqualOrOlderTimestampIgnored(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()
	t0 := clk.Now()

	require.NotNil(t, s.Add(ctx, "RUT", situation("RUT", "sx-1", t0, time.Hour)))

	same := situation("RUT", "sx-1", t0, time.Hour)
	same.Progress = "closed"
	assert.Nil(t, s.Add(ctx, "RUT", same), "equal timestamp must not replace")

	older := situation("RUT", "sx-1", t0.Add(-time.Minute), time.Hour)
	assert.Nil(t, s.Add(ctx, "RUT", older), "older timestamp must not replace")

	got := s.GetAll(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "open", got[0].Payload.Progress)
}

func TestExpiredOnArrivalDropped(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()

	stale := situation("RUT", "sx-1", clk.Now().Add(-2*time.Hour), time.Hour)
	assert.Nil(t, s.Add(ctx, "RUT", stale))
	assert.Equal(t, 0, s.Size(ctx))

	// It must not show up for tracked consumers either.
	assert.Empty(t, s.GetAllUpdates(ctx, "consumer-1", ""))
	s.Add(ctx, "RUT", situation("RUT", "sx-2", clk.Now().Add(-2*time.Hour), time.Hour))
	assert.Empty(t, s.GetAllUpdates(ctx, "consumer-1", ""))
}

func TestStatelessReadReturnsEverything(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()

	s.Add(ctx, "RUT", situation("RUT", "sx-1", clk.Now(), time.Hour))
	s.Add(ctx, "ATB", situation("ATB", "sx-2", clk.Now(), time.Hour))

	assert.Len(t, s.GetAllUpdates(ctx, "", ""), 2)
	got := s.GetAllUpdates(ctx, "", "ATB")
	require.Len(t, got, 1)
	assert.Equal(t, "ATB", got[0].DatasetID)

	// Stateless reads are repeatable; nothing is drained.
	assert.Len(t, s.GetAllUpdates(ctx, "", ""), 2)
}

func TestFirstPollReturnsFullSnapshot(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()

	s.Add(ctx, "RUT", situation("RUT", "sx-1", clk.Now(), time.Hour))
	s.Add(ctx, "RUT", situation("RUT", "sx-2", clk.Now(), time.Hour))

	got := s.GetAllUpdates(ctx, "consumer-1", "")
	assert.Len(t, got, 2)
}

func TestSecondPollReturnsOnlyChanges(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()

	s.Add(ctx, "RUT", situation("RUT", "sx-1", clk.Now(), time.Hour))
	require.Len(t, s.GetAllUpdates(ctx, "consumer-1", ""), 1)

	s.Add(ctx, "RUT", situation("RUT", "sx-2", clk.Now(), time.Hour))
	got := s.GetAllUpdates(ctx, "consumer-1", "")
	require.Len(t, got, 1)
	assert.Equal(t, "RUT:RUT:sx-2", got[0].Key)
}

func TestPollWithoutChangesReturnsEmpty(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()

	s.Add(ctx, "RUT", situation("RUT", "sx-1", clk.Now(), time.Hour))
	require.Len(t, s.GetAllUpdates(ctx, "consumer-1", ""), 1)
	assert.Empty(t, s.GetAllUpdates(ctx, "consumer-1", ""))
	assert.Empty(t, s.GetAllUpdates(ctx, "consumer-1", ""))
}

func TestIndependentConsumersEachSeeChange(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()

	s.Add(ctx, "RUT", situation("RUT", "sx-1", clk.Now(), time.Hour))
	require.Len(t, s.GetAllUpdates(ctx, "consumer-1", ""), 1)
	require.Len(t, s.GetAllUpdates(ctx, "consumer-2", ""), 1)

	s.Add(ctx, "RUT", situation("RUT", "sx-3", clk.Now(), time.Hour))

	got1 := s.GetAllUpdates(ctx, "consumer-1", "")
	got2 := s.GetAllUpdates(ctx, "consumer-2", "")
	require.Len(t, got1, 1)
	require.Len(t, got2, 1)
	assert.Equal(t, "RUT:RUT:sx-3", got1[0].Key)
	assert.Equal(t, "RUT:RUT:sx-3", got2[0].Key)

	// Draining one consumer must not affect the other.
	assert.Empty(t, s.GetAllUpdates(ctx, "consumer-1", ""))
}

func TestGetUpdatesDatasetFilterKeepsOtherPending(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()

	require.Empty(t, s.GetAllUpdates(ctx, "consumer-1", ""))

	s.Add(ctx, "RUT", situation("RUT", "sx-1", clk.Now(), time.Hour))
	s.Add(ctx, "ATB", situation("ATB", "sx-2", clk.Now(), time.Hour))

	got := s.GetAllUpdates(ctx, "consumer-1", "RUT")
	require.Len(t, got, 1)
	assert.Equal(t, "RUT:RUT:sx-1", got[0].Key)

	// The ATB change stayed pending and arrives on the next poll.
	got = s.GetAllUpdates(ctx, "consumer-1", "")
	require.Len(t, got, 1)
	assert.Equal(t, "ATB:ATB:sx-2", got[0].Key)
}

func TestSilentConsumerRevertsToFullSnapshot(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()

	s.Add(ctx, "RUT", situation("RUT", "sx-1", clk.Now(), 12*time.Hour))
	require.Len(t, s.GetAllUpdates(ctx, "consumer-1", ""), 1)

	// Stay silent past the tracking window; the write prunes the consumer.
	clk.Advance(trackingWindow + time.Minute)
	s.Add(ctx, "RUT", situation("RUT", "sx-2", clk.Now(), 12*time.Hour))

	got := s.GetAllUpdates(ctx, "consumer-1", "")
	assert.ElementsMatch(t, []string{"RUT:RUT:sx-1", "RUT:RUT:sx-2"}, keysOf(got),
		"a pruned consumer gets a fresh full snapshot")
}

func TestReplacementIsTrackedAsChange(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()
	t0 := clk.Now()

	s.Add(ctx, "RUT", situation("RUT", "sx-1", t0, time.Hour))
	require.Len(t, s.GetAllUpdates(ctx, "consumer-1", ""), 1)

	// Ignored resubmission produces no pending change.
	s.Add(ctx, "RUT", situation("RUT", "sx-1", t0, time.Hour))
	assert.Empty(t, s.GetAllUpdates(ctx, "consumer-1", ""))

	// A genuine replacement does.
	s.Add(ctx, "RUT", situation("RUT", "sx-1", t0.Add(time.Minute), time.Hour))
	got := s.GetAllUpdates(ctx, "consumer-1", "")
	require.Len(t, got, 1)
	assert.Equal(t, "RUT:RUT:sx-1", got[0].Key)
}

func TestCleanupRemovesExpired(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()

	s.Add(ctx, "RUT", situation("RUT", "sx-short", clk.Now(), 30*time.Minute))
	s.Add(ctx, "RUT", situation("RUT", "sx-long", clk.Now(), 4*time.Hour))
	require.Equal(t, 2, s.Size(ctx))

	clk.Advance(time.Hour)
	assert.Equal(t, 1, s.Cleanup(ctx))
	assert.Equal(t, 0, s.Cleanup(ctx), "second sweep finds nothing")

	got := s.GetAll(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "RUT:RUT:sx-long", got[0].Key)
}

func TestExpiredRecordNotServed(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()

	s.Add(ctx, "RUT", situation("RUT", "sx-1", clk.Now(), 30*time.Minute))
	clk.Advance(time.Hour)

	// Expired before any cleanup ran; reads must already skip it.
	assert.Empty(t, s.GetAll(ctx))
	assert.Equal(t, 0, s.Size(ctx))
}

func TestAddAllReturnsOnlyAcceptedRecords(t *testing.T) {
	s, clk := newSituationStore(t)
	ctx := context.Background()
	t0 := clk.Now()

	require.Len(t, s.AddAll(ctx, "RUT", []*siri.PtSituationElement{
		situation("RUT", "sx-1", t0, time.Hour),
	}), 1)

	stored := s.AddAll(ctx, "RUT", []*siri.PtSituationElement{
		situation("RUT", "sx-1", t0, time.Hour),                  // duplicate, ignored
		situation("RUT", "sx-2", t0, time.Hour),                  // new
		situation("RUT", "sx-3", t0.Add(-2*time.Hour), time.Hour), // expired on arrival
		nil, // unkeyable
	})
	assert.Equal(t, []string{"RUT:RUT:sx-2"}, keysOf(stored))
}

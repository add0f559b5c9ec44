package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
	"github.com/theoremus-urban-solutions/siri-hub/store"
)

func TestSituationKey(t *testing.T) {
	desc := store.Situations()

	assert.Equal(t, "RUT:sx-1", desc.NaturalKey(&siri.PtSituationElement{
		ParticipantRef:  "RUT",
		SituationNumber: "sx-1",
	}))
	assert.Empty(t, desc.NaturalKey(&siri.PtSituationElement{ParticipantRef: "RUT"}))
	assert.Empty(t, desc.NaturalKey(nil))
}

func TestVehicleActivityKey(t *testing.T) {
	desc := store.VehicleActivities()

	assert.Equal(t, "line-1:veh-7", desc.NaturalKey(&siri.VehicleActivity{
		MonitoredVehicleJourney: siri.MonitoredVehicleJourney{
			LineRef:    "line-1",
			VehicleRef: "veh-7",
		},
	}))
	assert.Empty(t, desc.NaturalKey(&siri.VehicleActivity{
		MonitoredVehicleJourney: siri.MonitoredVehicleJourney{LineRef: "line-1"},
	}))
	assert.Empty(t, desc.NaturalKey(nil))
}

func TestEstimatedTimetableExpiry(t *testing.T) {
	grace := 5 * time.Minute
	desc := store.EstimatedTimetables(grace)

	recorded := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	lastCall := recorded.Add(45 * time.Minute)
	journey := &siri.EstimatedVehicleJourney{
		RecordedAtTime:         recorded,
		LineRef:                "line-1",
		VehicleRef:             "veh-7",
		DatedVehicleJourneyRef: "dvj-1",
		EstimatedCalls: []siri.EstimatedCall{
			{StopPointRef: "stop-1", ExpectedDepartureTime: recorded.Add(5 * time.Minute)},
			{StopPointRef: "stop-2", AimedArrivalTime: lastCall, ExpectedArrivalTime: lastCall.Add(-time.Minute)},
		},
	}

	assert.Equal(t, "line-1:veh-7:dvj-1", desc.NaturalKey(journey))
	assert.Equal(t, lastCall.Add(grace), desc.ValidUntil(journey),
		"journey stays live until the last call plus the grace period")

	// Without calls the recorded time anchors the expiry.
	noCalls := &siri.EstimatedVehicleJourney{RecordedAtTime: recorded, LineRef: "line-1"}
	assert.Equal(t, recorded.Add(grace), desc.ValidUntil(noCalls))

	assert.True(t, desc.ValidUntil(nil).IsZero())
}

func TestProductionTimetableKey(t *testing.T) {
	desc := store.ProductionTimetables()

	assert.Equal(t, "2026-09", desc.NaturalKey(&siri.ProductionTimetableDelivery{Version: "2026-09"}))
	assert.Empty(t, desc.NaturalKey(&siri.ProductionTimetableDelivery{}))
	assert.Empty(t, desc.NaturalKey(nil))
}

package sirihub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
	"github.com/theoremus-urban-solutions/siri-hub/store"
	"github.com/theoremus-urban-solutions/siri-hub/subscription"
)

func payloads[T any](records []store.Record[T]) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Payload)
	}
	return out
}

func (a *App) newServiceDelivery() siri.ServiceDelivery {
	return siri.ServiceDelivery{
		ResponseTimestamp: time.Now(),
		ProducerRef:       a.Config.Server.Environment,
	}
}

// deliveryFor answers a read for one data category: the full snapshot for
// stateless or first-time consumers, the accumulated changes otherwise.
// It returns the assembled delivery and the number of elements in it.
func (a *App) deliveryFor(ctx context.Context, dataType subscription.DataType, consumerID, datasetID string) (siri.ServiceDelivery, int) {
	sd := a.newServiceDelivery()
	n := 0
	switch dataType {
	case subscription.SituationExchange:
		sd.Situations = payloads(a.Situations.GetAllUpdates(ctx, consumerID, datasetID))
		n = len(sd.Situations)
	case subscription.VehicleMonitoring:
		sd.VehicleActivities = payloads(a.VehicleActivities.GetAllUpdates(ctx, consumerID, datasetID))
		n = len(sd.VehicleActivities)
	case subscription.EstimatedTimetable:
		sd.EstimatedVehicleJourneys = payloads(a.EstimatedTimetables.GetAllUpdates(ctx, consumerID, datasetID))
		n = len(sd.EstimatedVehicleJourneys)
	case subscription.ProductionTimetable:
		sd.ProductionTimetables = payloads(a.ProductionTimetables.GetAllUpdates(ctx, consumerID, datasetID))
		n = len(sd.ProductionTimetables)
	}
	return sd, n
}

// applyDelivery routes an inbound delivery to the store of the
// subscription's data category and returns how many records changed.
func (a *App) applyDelivery(ctx context.Context, setup subscription.Setup, sd siri.ServiceDelivery) int {
	switch setup.DataType {
	case subscription.SituationExchange:
		return len(a.Situations.AddAll(ctx, setup.DatasetID, sd.Situations))
	case subscription.VehicleMonitoring:
		return len(a.VehicleActivities.AddAll(ctx, setup.DatasetID, sd.VehicleActivities))
	case subscription.EstimatedTimetable:
		return len(a.EstimatedTimetables.AddAll(ctx, setup.DatasetID, sd.EstimatedVehicleJourneys))
	case subscription.ProductionTimetable:
		return len(a.ProductionTimetables.AddAll(ctx, setup.DatasetID, sd.ProductionTimetables))
	}
	return 0
}

// pushChanges delivers accumulated changes to every push-mode consumer of
// the given category. Each consumer drains only its own pending set, so
// push and poll consumers coexist.
func (a *App) pushChanges(ctx context.Context, dataType subscription.DataType) {
	for _, pc := range a.Config.PushConsumers {
		if subscription.DataType(pc.DataType) != dataType {
			continue
		}
		sd, n := a.deliveryFor(ctx, dataType, pc.ConsumerID, "")
		if n == 0 {
			continue
		}
		data, err := json.Marshal(siri.Response{Siri: sd})
		if err != nil {
			a.log.Warn("encoding push delivery failed", "consumer", pc.ConsumerID, "error", err)
			continue
		}
		a.Dispatcher.Dispatch(ctx, data, pc.Address)
	}
}

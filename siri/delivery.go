package siri

import "time"

// ServiceDelivery is the envelope used both for inbound deliveries from
// upstream feeds and for outbound responses to consumers. Only the slices
// relevant to the delivery's data category are populated.
type ServiceDelivery struct {
	ResponseTimestamp        time.Time                      `json:"ResponseTimestamp" xml:"ResponseTimestamp"`
	ProducerRef              string                         `json:"ProducerRef,omitempty" xml:"ProducerRef,omitempty"`
	Situations               []*PtSituationElement          `json:"Situations,omitempty" xml:"Situations>PtSituationElement,omitempty"`
	VehicleActivities        []*VehicleActivity             `json:"VehicleActivities,omitempty" xml:"VehicleActivities>VehicleActivity,omitempty"`
	EstimatedVehicleJourneys []*EstimatedVehicleJourney     `json:"EstimatedVehicleJourneys,omitempty" xml:"EstimatedVehicleJourneys>EstimatedVehicleJourney,omitempty"`
	ProductionTimetables     []*ProductionTimetableDelivery `json:"ProductionTimetables,omitempty" xml:"ProductionTimetables>ProductionTimetableDelivery,omitempty"`
}

// Response is the top-level SIRI document.
type Response struct {
	Siri ServiceDelivery `json:"Siri" xml:"Siri"`
}

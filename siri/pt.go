package siri

import "time"

// ProductionTimetableDelivery represents one versioned planned timetable.
type ProductionTimetableDelivery struct {
	ResponseTimestamp          time.Time                    `json:"ResponseTimestamp" xml:"ResponseTimestamp"`
	ValidUntilTime             time.Time                    `json:"ValidUntil,omitzero" xml:"ValidUntil,omitempty"`
	Version                    string                       `json:"version" xml:"version,attr"`
	DatedTimetableVersionFrame []DatedTimetableVersionFrame `json:"DatedTimetableVersionFrame,omitempty" xml:"DatedTimetableVersionFrame,omitempty"`
}

// DatedTimetableVersionFrame groups the planned journeys of one line for
// one operating day.
type DatedTimetableVersionFrame struct {
	RecordedAtTime      time.Time             `json:"RecordedAtTime,omitzero" xml:"RecordedAtTime,omitempty"`
	LineRef             string                `json:"LineRef" xml:"LineRef"`
	DirectionRef        string                `json:"DirectionRef,omitempty" xml:"DirectionRef,omitempty"`
	DatedVehicleJourney []DatedVehicleJourney `json:"DatedVehicleJourney,omitempty" xml:"DatedVehicleJourney,omitempty"`
}

// DatedVehicleJourney is a single planned journey.
type DatedVehicleJourney struct {
	DatedVehicleJourneyCode string      `json:"DatedVehicleJourneyCode" xml:"DatedVehicleJourneyCode"`
	DatedCalls              []DatedCall `json:"DatedCalls,omitempty" xml:"DatedCalls>DatedCall,omitempty"`
}

// DatedCall is a planned call at a stop.
type DatedCall struct {
	StopPointRef       string    `json:"StopPointRef" xml:"StopPointRef"`
	Order              int       `json:"Order,omitempty" xml:"Order,omitempty"`
	AimedArrivalTime   time.Time `json:"AimedArrivalTime,omitzero" xml:"AimedArrivalTime,omitempty"`
	AimedDepartureTime time.Time `json:"AimedDepartureTime,omitzero" xml:"AimedDepartureTime,omitempty"`
}

// RecordedAt returns the recency timestamp of the timetable version.
func (p *ProductionTimetableDelivery) RecordedAt() time.Time {
	if p == nil {
		return time.Time{}
	}
	return p.ResponseTimestamp
}

// ValidUntil returns the declared expiration horizon of the timetable.
func (p *ProductionTimetableDelivery) ValidUntil() time.Time {
	if p == nil {
		return time.Time{}
	}
	return p.ValidUntilTime
}

package siri

import "time"

// EstimatedVehicleJourney represents one journey in an EstimatedTimetable
// delivery.
type EstimatedVehicleJourney struct {
	RecordedAtTime          time.Time       `json:"RecordedAtTime" xml:"RecordedAtTime"`
	LineRef                 string          `json:"LineRef" xml:"LineRef"`
	DirectionRef            string          `json:"DirectionRef,omitempty" xml:"DirectionRef,omitempty"`
	DatedVehicleJourneyRef  string          `json:"DatedVehicleJourneyRef,omitempty" xml:"DatedVehicleJourneyRef,omitempty"`
	VehicleRef              string          `json:"VehicleRef,omitempty" xml:"VehicleRef,omitempty"`
	OperatorRef             string          `json:"OperatorRef,omitempty" xml:"OperatorRef,omitempty"`
	Cancellation            bool            `json:"Cancellation,omitempty" xml:"Cancellation,omitempty"`
	IsCompleteStopSequence  bool            `json:"IsCompleteStopSequence,omitempty" xml:"IsCompleteStopSequence,omitempty"`
	EstimatedCalls          []EstimatedCall `json:"EstimatedCalls,omitempty" xml:"EstimatedCalls>EstimatedCall,omitempty"`
}

// EstimatedCall represents a call at a stop with aimed and expected times.
type EstimatedCall struct {
	StopPointRef          string    `json:"StopPointRef" xml:"StopPointRef"`
	Order                 int       `json:"Order,omitempty" xml:"Order,omitempty"`
	AimedArrivalTime      time.Time `json:"AimedArrivalTime,omitzero" xml:"AimedArrivalTime,omitempty"`
	ExpectedArrivalTime   time.Time `json:"ExpectedArrivalTime,omitzero" xml:"ExpectedArrivalTime,omitempty"`
	AimedDepartureTime    time.Time `json:"AimedDepartureTime,omitzero" xml:"AimedDepartureTime,omitempty"`
	ExpectedDepartureTime time.Time `json:"ExpectedDepartureTime,omitzero" xml:"ExpectedDepartureTime,omitempty"`
	ArrivalStatus         string    `json:"ArrivalStatus,omitempty" xml:"ArrivalStatus,omitempty"`
	DepartureStatus       string    `json:"DepartureStatus,omitempty" xml:"DepartureStatus,omitempty"`
}

// RecordedAt returns the recency timestamp of the journey update.
func (j *EstimatedVehicleJourney) RecordedAt() time.Time {
	if j == nil {
		return time.Time{}
	}
	return j.RecordedAtTime
}

// LastCallTime returns the latest aimed or expected time across all
// estimated calls. An EstimatedVehicleJourney carries no ValidUntil of its
// own; the journey stays relevant until its final call has passed.
func (j *EstimatedVehicleJourney) LastCallTime() time.Time {
	if j == nil {
		return time.Time{}
	}
	var latest time.Time
	for _, c := range j.EstimatedCalls {
		for _, t := range []time.Time{c.AimedArrivalTime, c.ExpectedArrivalTime, c.AimedDepartureTime, c.ExpectedDepartureTime} {
			if t.After(latest) {
				latest = t
			}
		}
	}
	return latest
}

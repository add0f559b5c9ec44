package siri

import "time"

// VehicleActivity represents a single vehicle's activity in a
// VehicleMonitoring delivery.
type VehicleActivity struct {
	RecordedAtTime          time.Time               `json:"RecordedAtTime" xml:"RecordedAtTime"`
	ValidUntilTime          time.Time               `json:"ValidUntilTime,omitzero" xml:"ValidUntilTime,omitempty"`
	ProgressBetweenStops    *ProgressBetweenStops   `json:"ProgressBetweenStops,omitempty" xml:"ProgressBetweenStops,omitempty"`
	MonitoredVehicleJourney MonitoredVehicleJourney `json:"MonitoredVehicleJourney" xml:"MonitoredVehicleJourney"`
}

// MonitoredVehicleJourney contains details about a monitored vehicle journey
type MonitoredVehicleJourney struct {
	LineRef           string           `json:"LineRef" xml:"LineRef"`
	DirectionRef      string           `json:"DirectionRef,omitempty" xml:"DirectionRef,omitempty"`
	PublishedLineName string           `json:"PublishedLineName,omitempty" xml:"PublishedLineName,omitempty"`
	OperatorRef       string           `json:"OperatorRef,omitempty" xml:"OperatorRef,omitempty"`
	OriginRef         string           `json:"OriginRef,omitempty" xml:"OriginRef,omitempty"`
	DestinationRef    string           `json:"DestinationRef,omitempty" xml:"DestinationRef,omitempty"`
	Monitored         bool             `json:"Monitored" xml:"Monitored"`
	VehicleLocation   *VehicleLocation `json:"VehicleLocation,omitempty" xml:"VehicleLocation,omitempty"`
	Bearing           *float64         `json:"Bearing,omitempty" xml:"Bearing,omitempty"`
	Delay             string           `json:"Delay,omitempty" xml:"Delay,omitempty"` // ISO8601 duration, e.g. "PT16S"
	VehicleStatus     string           `json:"VehicleStatus,omitempty" xml:"VehicleStatus,omitempty"`
	VehicleRef        string           `json:"VehicleRef" xml:"VehicleRef"`
}

// VehicleLocation represents the geographical location of a vehicle
type VehicleLocation struct {
	Latitude  float64 `json:"Latitude" xml:"Latitude"`
	Longitude float64 `json:"Longitude" xml:"Longitude"`
}

// ProgressBetweenStops describes how far the vehicle has travelled on the
// current link.
type ProgressBetweenStops struct {
	LinkDistance float64 `json:"LinkDistance,omitempty" xml:"LinkDistance,omitempty"`
	Percentage   float64 `json:"Percentage,omitempty" xml:"Percentage,omitempty"`
}

// RecordedAt returns the recency timestamp of the activity.
func (v *VehicleActivity) RecordedAt() time.Time {
	if v == nil {
		return time.Time{}
	}
	return v.RecordedAtTime
}

// ValidUntil returns the declared expiration horizon of the activity.
func (v *VehicleActivity) ValidUntil() time.Time {
	if v == nil {
		return time.Time{}
	}
	return v.ValidUntilTime
}

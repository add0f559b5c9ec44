// Package siri defines SIRI (Service Interface for Real-time Information) data types.
//
// SIRI is a European standard (CEN/TS 15531) for real-time public transport information.
// This package contains Go structs for the four SIRI modules the hub aggregates:
//
//   - SituationExchange (SX): service alerts and disruptions
//   - VehicleMonitoring (VM): real-time vehicle locations and status
//   - EstimatedTimetable (ET): journey timetables with live predictions
//   - ProductionTimetable (PT): planned timetable versions
//
// All types include JSON and XML struct tags for serialization. Timestamps
// are time.Time values and marshal as ISO8601.
package siri

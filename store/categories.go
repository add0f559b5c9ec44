package store

import (
	"time"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
)

// Situations describes the SX category. A situation's identity is the
// participant plus the situation number; it stays live until the end of
// its latest validity period.
func Situations() Descriptor[*siri.PtSituationElement] {
	return Descriptor[*siri.PtSituationElement]{
		Name: "sx",
		NaturalKey: func(s *siri.PtSituationElement) string {
			if s == nil || s.SituationNumber == "" {
				return ""
			}
			return s.ParticipantRef + ":" + s.SituationNumber
		},
		RecordedAt: (*siri.PtSituationElement).RecordedAt,
		ValidUntil: (*siri.PtSituationElement).ValidUntil,
	}
}

// VehicleActivities describes the VM category. A vehicle activity's
// identity is the line plus the vehicle.
func VehicleActivities() Descriptor[*siri.VehicleActivity] {
	return Descriptor[*siri.VehicleActivity]{
		Name: "vm",
		NaturalKey: func(v *siri.VehicleActivity) string {
			if v == nil {
				return ""
			}
			mvj := v.MonitoredVehicleJourney
			if mvj.LineRef == "" || mvj.VehicleRef == "" {
				return ""
			}
			return mvj.LineRef + ":" + mvj.VehicleRef
		},
		RecordedAt: (*siri.VehicleActivity).RecordedAt,
		ValidUntil: (*siri.VehicleActivity).ValidUntil,
	}
}

// EstimatedTimetables describes the ET category. A journey's identity is
// the line, the vehicle and the dated journey reference. The journey has
// no declared expiry of its own; it stays live until its last call plus
// the grace period.
func EstimatedTimetables(grace time.Duration) Descriptor[*siri.EstimatedVehicleJourney] {
	return Descriptor[*siri.EstimatedVehicleJourney]{
		Name: "et",
		NaturalKey: func(j *siri.EstimatedVehicleJourney) string {
			if j == nil || j.LineRef == "" {
				return ""
			}
			return j.LineRef + ":" + j.VehicleRef + ":" + j.DatedVehicleJourneyRef
		},
		RecordedAt: (*siri.EstimatedVehicleJourney).RecordedAt,
		ValidUntil: func(j *siri.EstimatedVehicleJourney) time.Time {
			if j == nil {
				return time.Time{}
			}
			last := j.LastCallTime()
			if last.IsZero() {
				last = j.RecordedAtTime
			}
			if last.IsZero() {
				return time.Time{}
			}
			return last.Add(grace)
		},
	}
}

// ProductionTimetables describes the PT category. A timetable's identity
// is its version.
func ProductionTimetables() Descriptor[*siri.ProductionTimetableDelivery] {
	return Descriptor[*siri.ProductionTimetableDelivery]{
		Name: "pt",
		NaturalKey: func(p *siri.ProductionTimetableDelivery) string {
			if p == nil || p.Version == "" {
				return ""
			}
			return p.Version
		},
		RecordedAt: (*siri.ProductionTimetableDelivery).RecordedAt,
		ValidUntil: (*siri.ProductionTimetableDelivery).ValidUntil,
	}
}

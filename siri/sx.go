package siri

import "time"

// PtSituationElement represents a single public transport situation
// (alert/disruption) as delivered in a SituationExchange message.
type PtSituationElement struct {
	CreationTime    time.Time               `json:"CreationTime" xml:"CreationTime"`
	ParticipantRef  string                  `json:"ParticipantRef" xml:"ParticipantRef"`
	SituationNumber string                  `json:"SituationNumber" xml:"SituationNumber"`
	Source          *SituationSource        `json:"Source,omitempty" xml:"Source,omitempty"`
	Progress        string                  `json:"Progress" xml:"Progress"` // open|closed
	ValidityPeriod  []ValidityPeriod        `json:"ValidityPeriod" xml:"ValidityPeriod"`
	Severity        string                  `json:"Severity,omitempty" xml:"Severity,omitempty"`
	ReportType      string                  `json:"ReportType,omitempty" xml:"ReportType,omitempty"` // general|incident
	Summary         []NaturalLanguageString `json:"Summary,omitempty" xml:"Summary,omitempty"`
	Description     []NaturalLanguageString `json:"Description,omitempty" xml:"Description,omitempty"`
	Advice          []NaturalLanguageString `json:"Advice,omitempty" xml:"Advice,omitempty"`
}

// SituationSource represents the source of the situation message
type SituationSource struct {
	SourceType string `json:"SourceType,omitempty" xml:"SourceType,omitempty"`
}

// ValidityPeriod represents a time period with start and optional end time
type ValidityPeriod struct {
	StartTime time.Time `json:"StartTime" xml:"StartTime"`
	EndTime   time.Time `json:"EndTime,omitzero" xml:"EndTime,omitempty"`
}

// NaturalLanguageString represents text with a language attribute
type NaturalLanguageString struct {
	Lang string `json:"lang,omitempty" xml:"lang,attr,omitempty"`
	Text string `json:"text" xml:",chardata"`
}

// RecordedAt returns the recency timestamp used for last-writer-wins
// comparisons between versions of the same situation.
func (s *PtSituationElement) RecordedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.CreationTime
}

// ValidUntil returns the latest validity-period end. Zero when no period
// declares an end time, which the store treats as already expired.
func (s *PtSituationElement) ValidUntil() time.Time {
	if s == nil {
		return time.Time{}
	}
	var latest time.Time
	for _, p := range s.ValidityPeriod {
		if p.EndTime.After(latest) {
			latest = p.EndTime
		}
	}
	return latest
}

// Package training provides the public domain types shared by the ReadyRun
// modules: log entries as the trainlog store persists them, the per-entry
// derived metrics, and the readiness result the analyzer produces.
package training

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for entry dates.
const DateLayout = "2006-01-02"

// SessionType classifies a training session.
type SessionType string

const (
	SessionJog       SessionType = "Jog"
	SessionLong      SessionType = "Long"
	SessionTempo     SessionType = "Tempo"
	SessionInterval  SessionType = "Interval"
	SessionAnaerobic SessionType = "Anaerobic"
	SessionRest      SessionType = "Rest"
)

// ValidSessionTypes contains all accepted session type values.
var ValidSessionTypes = map[SessionType]bool{
	SessionJog:       true,
	SessionLong:      true,
	SessionTempo:     true,
	SessionInterval:  true,
	SessionAnaerobic: true,
	SessionRest:      true,
}

// ParseSessionType validates and converts a raw session type string.
func ParseSessionType(s string) (SessionType, error) {
	st := SessionType(s)
	if !ValidSessionTypes[st] {
		return "", fmt.Errorf("unknown session type %q", s)
	}
	return st, nil
}

// LogEntry is one recorded training day. Entries are append-only; the store
// deduplicates by date (last write wins), never the analyzer.
type LogEntry struct {
	Date              time.Time   `json:"date"`
	RestingHR         int         `json:"resting_hr"`         // Beats per minute, positive
	DistanceKm        float64     `json:"distance_km"`        // Non-negative
	PerceivedExertion float64     `json:"perceived_exertion"` // RPE, nominal 1-10
	Session           SessionType `json:"session"`
}

// Day returns the entry date in YYYY-MM-DD form.
func (e LogEntry) Day() string {
	return e.Date.Format(DateLayout)
}

// Metrics holds the rolling statistics derived for one log entry.
// Computed fresh on every analysis call, never persisted.
type Metrics struct {
	Load        float64 `json:"load"`         // DistanceKm * RPE
	AcuteLoad   float64 `json:"acute_load"`   // Trailing mean over the acute window
	ChronicLoad float64 `json:"chronic_load"` // Trailing mean over the chronic window
	ACWR        float64 `json:"acwr"`         // Acute:chronic ratio, 0 when chronic is 0

	RHRMean float64 `json:"rhr_mean"` // Trailing mean of resting HR
	// RHRStd is the trailing sample standard deviation of resting HR.
	// Nil while the window holds fewer than two entries: an undefined
	// deviation is "not available", never zero.
	RHRStd *float64 `json:"rhr_std,omitempty"`
}

// AnnotatedEntry pairs a log entry with its derived metrics for charting.
type AnnotatedEntry struct {
	LogEntry
	Metrics Metrics `json:"metrics"`
}

// Status is the tri-state readiness verdict.
type Status string

const (
	StatusGreen  Status = "GREEN"
	StatusYellow Status = "YELLOW"
	StatusRed    Status = "RED"
)

// Result is the outcome of one readiness analysis.
type Result struct {
	Score          int              `json:"score"` // Starts at 100, penalties only; may go negative
	Status         Status           `json:"status"`
	Recommendation string           `json:"recommendation"`
	Warnings       []string         `json:"warnings"` // Rule evaluation order
	AnnotatedLog   []AnnotatedEntry `json:"annotated_log"`
}

// TrendPoint is one date-keyed sample of the chartable readiness series.
type TrendPoint struct {
	Date      string  `json:"date"`
	ACWR      float64 `json:"acwr"`
	RestingHR int     `json:"resting_hr"`
	Load      float64 `json:"load"`
}

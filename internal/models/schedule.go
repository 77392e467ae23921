// Package models contains data structures used throughout the application
package models

import "time"

// Adherence describes whether consumption is tracking the daily goal pace.
type Adherence string

const (
	AdherenceAhead  Adherence = "ahead"
	AdherenceOnPace Adherence = "on_pace"
	AdherenceBehind Adherence = "behind"
)

// PaceLabel returns a human-readable label for display.
func (a Adherence) PaceLabel() string {
	switch a {
	case AdherenceAhead:
		return "Ahead of pace"
	case AdherenceBehind:
		return "Behind pace"
	default:
		return "On pace"
	}
}

// SchedulePhase is the scheduler state: idle outside the active window,
// tracking inside it. There are no other states.
type SchedulePhase string

const (
	PhaseIdle     SchedulePhase = "idle"
	PhaseTracking SchedulePhase = "tracking"
)

// ScheduleState is the single source of truth for reminder cadence. It is
// owned exclusively by the adaptive scheduler and mutated at most once per
// tick or logged event.
type ScheduleState struct {
	Phase SchedulePhase `json:"phase"`

	// Live reminder interval, kept within the configured floor/ceiling.
	CurrentIntervalMinutes float64 `json:"currentIntervalMinutes"`

	ActiveStartHour int `json:"activeStartHour"`
	ActiveEndHour   int `json:"activeEndHour"`

	TotalConsumedML   float64 `json:"totalConsumedMl"`
	GoalML            float64 `json:"goalMl"`
	VelocityMLPerHour float64 `json:"velocityMlPerHour"`

	Adherence Adherence `json:"adherence"`

	// Stale is set when the event store or clock could not be consulted and
	// the state shown is the last known-good one.
	Stale bool `json:"stale"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// PaceLabel returns the display label for the current adherence.
func (s *ScheduleState) PaceLabel() string {
	return s.Adherence.PaceLabel()
}

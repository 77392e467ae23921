// Package models contains data structures used throughout the application
package models

import "time"

// IntakeEvent represents a single logged drink. Events are immutable once
// recorded; they are owned by the event store and read-only everywhere else.
type IntakeEvent struct {
	ID        int64     `json:"id"`
	AmountML  int       `json:"amountMl"`
	Timestamp time.Time `json:"timestamp"`
}

// Time returns the time the drink was logged.
func (e *IntakeEvent) Time() time.Time {
	return e.Timestamp
}

// DailyTotal is a per-day intake aggregate used for stats display.
type DailyTotal struct {
	Day     string `json:"day"` // YYYY-MM-DD
	TotalML int    `json:"totalMl"`
	Drinks  int    `json:"drinks"`
}

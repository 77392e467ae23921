// Package schedule adapts the reminder interval to daily goal adherence.
package schedule

import (
	"time"

	"github.com/hydraping/hydraping/internal/models"
)

const (
	// adherenceTolerance is the band around expected consumption that still
	// counts as on pace.
	adherenceTolerance = 0.10

	// shrinkFactor tightens the interval when behind; relaxFactor loosens it
	// when ahead. Both move one step per adjustment at most.
	shrinkFactor = 0.85
	relaxFactor  = 1.10

	// adjustCooldown is the minimum spacing between interval adjustments, so
	// a burst of ticks cannot collapse the interval to the floor at once.
	adjustCooldown = time.Minute
)

// Config holds the tunables the scheduler runs with. Values are validated as
// part of Settings; the scheduler trusts them.
type Config struct {
	BaseIntervalMinutes float64
	MinIntervalMinutes  float64
	MaxIntervalMinutes  float64
	GoalML              int
	ActiveStartHour     int
	ActiveEndHour       int
}

// ConfigFromSettings extracts the scheduler tunables from settings.
func ConfigFromSettings(s *models.Settings) Config {
	c := s.Clone()
	return Config{
		BaseIntervalMinutes: float64(c.BaseIntervalMinutes),
		MinIntervalMinutes:  float64(c.MinIntervalMinutes),
		MaxIntervalMinutes:  float64(c.MaxIntervalMinutes),
		GoalML:              c.DailyGoalML,
		ActiveStartHour:     c.ActiveStartHour,
		ActiveEndHour:       c.ActiveEndHour,
	}
}

// Scheduler owns the reminder cadence. It is not safe for concurrent use;
// the app drives it from a single owner goroutine.
type Scheduler struct {
	cfg Config

	phase           models.SchedulePhase
	intervalMinutes float64

	// consumedML mirrors the store's total for today; baselineML is the
	// portion hidden by a manual "reset today", which never deletes events.
	consumedML int
	baselineML int

	stale        bool
	windowStart  time.Time
	lastAdjustAt time.Time
}

// New creates a scheduler in the idle phase at the base interval.
func New(cfg Config) *Scheduler {
	return &Scheduler{
		cfg:             cfg,
		phase:           models.PhaseIdle,
		intervalMinutes: cfg.BaseIntervalMinutes,
	}
}

// Tick advances the scheduler with the store's consumption total for today.
// It transitions phases at the active window edges and nudges the interval
// toward the goal pace, at most one step per cooldown.
func (s *Scheduler) Tick(now time.Time, consumedML int) models.ScheduleState {
	s.consumedML = consumedML
	s.stale = false

	if !s.inActiveWindow(now) {
		if s.phase == models.PhaseTracking {
			s.phase = models.PhaseIdle
			s.intervalMinutes = s.cfg.BaseIntervalMinutes
		}
		return s.Snapshot(now)
	}

	if s.phase == models.PhaseIdle {
		s.enterWindow(now)
	}

	adherence := s.adherence(now)
	if adherence != models.AdherenceOnPace && s.adjustAllowed(now) {
		switch adherence {
		case models.AdherenceBehind:
			s.intervalMinutes = maxf(s.cfg.MinIntervalMinutes, s.intervalMinutes*shrinkFactor)
		case models.AdherenceAhead:
			s.intervalMinutes = minf(s.cfg.MaxIntervalMinutes, s.intervalMinutes*relaxFactor)
		}
		s.lastAdjustAt = now
	}

	return s.Snapshot(now)
}

// RecordIntake credits a logged drink immediately, ahead of the next store
// read, so the UI reacts without waiting for the async refresh.
func (s *Scheduler) RecordIntake(now time.Time, amountML int) models.ScheduleState {
	if amountML > 0 {
		s.consumedML += amountML
	}
	return s.Tick(now, s.consumedML)
}

// ResetToday hides today's accumulated consumption from pace tracking and
// restarts the interval at its base value. Logged events are kept.
func (s *Scheduler) ResetToday(now time.Time) models.ScheduleState {
	s.baselineML = s.consumedML
	s.intervalMinutes = s.cfg.BaseIntervalMinutes
	s.lastAdjustAt = time.Time{}
	return s.Snapshot(now)
}

// MarkStale flags the state as last-known-good after a store or clock
// failure. The next successful Tick clears it.
func (s *Scheduler) MarkStale() {
	s.stale = true
}

// UpdateConfig applies new tunables. The live interval is re-clamped and,
// when idle, snapped to the new base.
func (s *Scheduler) UpdateConfig(cfg Config) {
	s.cfg = cfg
	if s.phase == models.PhaseIdle {
		s.intervalMinutes = cfg.BaseIntervalMinutes
		return
	}
	s.intervalMinutes = minf(cfg.MaxIntervalMinutes, maxf(cfg.MinIntervalMinutes, s.intervalMinutes))
}

// Snapshot returns the current state without advancing the scheduler.
func (s *Scheduler) Snapshot(now time.Time) models.ScheduleState {
	return models.ScheduleState{
		Phase:                  s.phase,
		CurrentIntervalMinutes: s.intervalMinutes,
		ActiveStartHour:        s.cfg.ActiveStartHour,
		ActiveEndHour:          s.cfg.ActiveEndHour,
		TotalConsumedML:        float64(s.effectiveConsumed()),
		GoalML:                 float64(s.cfg.GoalML),
		VelocityMLPerHour:      s.velocity(now),
		Adherence:              s.adherence(now),
		Stale:                  s.stale,
		UpdatedAt:              now,
	}
}

// GoalReached reports whether today's effective consumption meets the goal.
func (s *Scheduler) GoalReached() bool {
	return s.cfg.GoalML > 0 && s.effectiveConsumed() >= s.cfg.GoalML
}

// WindowCloseAt returns the moment today's active window ends.
func (s *Scheduler) WindowCloseAt(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).
		Add(time.Duration(s.cfg.ActiveEndHour) * time.Hour)
}

func (s *Scheduler) enterWindow(now time.Time) {
	s.phase = models.PhaseTracking
	s.intervalMinutes = s.cfg.BaseIntervalMinutes
	s.lastAdjustAt = time.Time{}
	s.baselineML = 0

	y, m, d := now.Date()
	s.windowStart = time.Date(y, m, d, s.cfg.ActiveStartHour, 0, 0, 0, now.Location())
}

func (s *Scheduler) inActiveWindow(now time.Time) bool {
	h := now.Hour()
	return h >= s.cfg.ActiveStartHour && h < s.cfg.ActiveEndHour
}

func (s *Scheduler) effectiveConsumed() int {
	effective := s.consumedML - s.baselineML
	if effective < 0 {
		return 0
	}
	return effective
}

// adherence compares consumption against the linear pace from window start
// to the daily goal at window close.
func (s *Scheduler) adherence(now time.Time) models.Adherence {
	if s.phase != models.PhaseTracking || s.cfg.GoalML <= 0 {
		return models.AdherenceOnPace
	}

	windowHours := float64(s.cfg.ActiveEndHour - s.cfg.ActiveStartHour)
	elapsed := now.Sub(s.windowStart).Hours()
	if windowHours <= 0 || elapsed <= 0 {
		return models.AdherenceOnPace
	}
	if elapsed > windowHours {
		elapsed = windowHours
	}

	expected := float64(s.cfg.GoalML) * elapsed / windowHours
	consumed := float64(s.effectiveConsumed())

	switch {
	case consumed < expected*(1-adherenceTolerance):
		return models.AdherenceBehind
	case consumed > expected*(1+adherenceTolerance):
		return models.AdherenceAhead
	default:
		return models.AdherenceOnPace
	}
}

func (s *Scheduler) velocity(now time.Time) float64 {
	if s.phase != models.PhaseTracking {
		return 0
	}
	elapsed := now.Sub(s.windowStart).Hours()
	if elapsed < 1.0/60 {
		return 0
	}
	return float64(s.effectiveConsumed()) / elapsed
}

func (s *Scheduler) adjustAllowed(now time.Time) bool {
	return s.lastAdjustAt.IsZero() || now.Sub(s.lastAdjustAt) >= adjustCooldown
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

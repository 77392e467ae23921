// Package notifications handles system notifications and alerts
package notifications

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/hydraping/hydraping/internal/models"
)

// Alert kind constants
const (
	alertReminder    = "reminder"
	alertBehindPace  = "behind_pace"
	alertGoalReached = "goal_reached"
	alertBedtime     = "bedtime"
)

// Manager handles hydration reminders and alerts
type Manager struct {
	settings      *models.Settings
	lastAlertTime map[string]time.Time
	mu            sync.Mutex

	// Replaceable in tests; beeep in production.
	notifyFn func(title, message string) error
	nowFn    func() time.Time
}

// NewManager creates a new notification manager
func NewManager(settings *models.Settings) *Manager {
	return &Manager{
		settings:      settings,
		lastAlertTime: make(map[string]time.Time),
		notifyFn: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		nowFn: time.Now,
	}
}

// UpdateSettings updates the settings reference
func (m *Manager) UpdateSettings(settings *models.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
}

// SendReminder notifies that it is time to drink. The scheduler drives the
// cadence, so reminders bypass the repeat cooldown.
func (m *Manager) SendReminder(sipML int, state *models.ScheduleState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.settings.Clone().EnableNotifications {
		return nil
	}

	title, message := m.formatReminder(sipML, state)
	if err := m.notifyFn(title, message); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	m.lastAlertTime[alertReminder] = m.nowFn()
	return nil
}

// NotifyBehindPace alerts that consumption is falling behind the daily goal.
func (m *Manager) NotifyBehindPace(state *models.ScheduleState) error {
	title := "⬇️ Behind pace"
	message := fmt.Sprintf("You're at %.0fml of %.0fml. Time to catch up!",
		state.TotalConsumedML, state.GoalML)
	return m.sendThrottled(alertBehindPace, title, message)
}

// NotifyGoalReached celebrates hitting the daily goal. Sent at most once
// until the alert state is cleared at rollover.
func (m *Manager) NotifyGoalReached(goalML int) error {
	title := "🎉 Daily goal reached"
	message := fmt.Sprintf("%dml logged today. Well done!", goalML)
	return m.sendOnce(alertGoalReached, title, message)
}

// NotifyBedtimeWarning warns shortly before the active window closes when
// the goal is still out of reach.
func (m *Manager) NotifyBedtimeWarning(remainingML int) error {
	m.mu.Lock()
	enabled := m.settings.Clone().BedtimeWarningEnabled
	m.mu.Unlock()
	if !enabled {
		return nil
	}

	title := "🌙 Winding down"
	message := fmt.Sprintf("Still %dml short of today's goal. One last glass?", remainingML)
	return m.sendOnce(alertBedtime, title, message)
}

// formatReminder creates the reminder title and message
func (m *Manager) formatReminder(sipML int, state *models.ScheduleState) (string, string) {
	title := "💧 Time to drink"
	if state == nil {
		return title, fmt.Sprintf("Have %dml of water.", sipML)
	}
	message := fmt.Sprintf("Have %dml of water — %.0f of %.0fml today. %s.",
		sipML, state.TotalConsumedML, state.GoalML, state.PaceLabel())
	return title, message
}

// sendThrottled sends an alert honoring the repeat cooldown. With repeat
// disabled the alert fires once until its state is cleared.
func (m *Manager) sendThrottled(kind, title, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings := m.settings.Clone()
	if !settings.EnableNotifications {
		return nil
	}

	if lastTime, ok := m.lastAlertTime[kind]; ok {
		if settings.RepeatAlertMinutes <= 0 {
			return nil
		}
		repeatDuration := time.Duration(settings.RepeatAlertMinutes) * time.Minute
		if m.nowFn().Sub(lastTime) < repeatDuration {
			return nil
		}
	}

	if err := m.notifyFn(title, message); err != nil {
		return err
	}
	m.lastAlertTime[kind] = m.nowFn()
	return nil
}

// sendOnce sends an alert at most once until its state is cleared.
func (m *Manager) sendOnce(kind, title, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.settings.Clone().EnableNotifications {
		return nil
	}
	if _, ok := m.lastAlertTime[kind]; ok {
		return nil
	}

	if err := m.notifyFn(title, message); err != nil {
		return err
	}
	m.lastAlertTime[kind] = m.nowFn()
	return nil
}

// ClearAlertState clears the alert state for a specific kind or all kinds.
// The app clears everything at date rollover.
func (m *Manager) ClearAlertState(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if kind == "" {
		m.lastAlertTime = make(map[string]time.Time)
	} else {
		delete(m.lastAlertTime, kind)
	}
}

// SendTestNotification sends a test notification
func (m *Manager) SendTestNotification() error {
	return m.notifyFn("HydraPing", "Test notification - reminders are working!")
}

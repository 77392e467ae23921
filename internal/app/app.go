// Package app provides the main application logic
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/hydraping/hydraping/internal/activity"
	"github.com/hydraping/hydraping/internal/cache"
	"github.com/hydraping/hydraping/internal/models"
	"github.com/hydraping/hydraping/internal/notifications"
	"github.com/hydraping/hydraping/internal/prediction"
	"github.com/hydraping/hydraping/internal/schedule"
	"github.com/hydraping/hydraping/internal/store"
	"github.com/hydraping/hydraping/internal/tray"
)

const (
	// fineTick drives the reminder countdown; coarseTick drives store reads,
	// prediction refresh and pace checks.
	fineTick   = time.Second
	coarseTick = time.Minute

	// settingsTTL bounds how often the snapshot handed to the hot path is
	// re-cloned from the live settings.
	settingsTTL = 5 * time.Second

	// bedtimeWarningLead is how long before the active window closes the
	// last-call warning fires.
	bedtimeWarningLead = 30 * time.Minute

	settingsCacheKey = "settings"
)

// activityDetector adapts the reminder path to what the user is doing.
// Satisfied by *activity.Detector; stubbed in tests.
type activityDetector interface {
	ShouldSuppressReminder() bool
	AdjustedInterval(baseMinutes float64) float64
}

// App owns all mutable state. Every mutation runs on the single owner
// goroutine; external callers reach it through dispatched actions.
type App struct {
	settings      *models.Settings
	db            *store.DB
	predService   *prediction.Service
	scheduler     *schedule.Scheduler
	notifyManager *notifications.Manager
	trayIcon      *tray.Icon
	detector      activityDetector

	nowFn func() time.Time

	actions  chan func()
	stopChan chan struct{}

	// Owner-goroutine state. No locks: only the run loop touches these.
	settingsCache  *cache.Cache[string, *models.Settings]
	consumedML     int
	consumedGen    int
	today          string
	lastDrinkAt    time.Time
	lastReminderAt time.Time
	snoozedUntil   time.Time

	// Last published state, readable from any goroutine.
	mu             sync.RWMutex
	lastState      models.ScheduleState
	lastPrediction *models.PredictionResult
	isRunning      bool
}

// New creates the application with its production collaborators: settings
// from the config dir and the SQLite event store.
func New() (*App, error) {
	settings := models.DefaultSettings()
	if err := settings.Load(); err != nil {
		// Log error but continue with defaults
		fmt.Printf("Error loading settings: %v\n", err)
	}

	dbPath, err := store.DefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening event store: %w", err)
	}

	return newApp(settings, db, time.Now), nil
}

// newApp wires the app from explicit collaborators. Tests construct it with
// an in-memory store and a fake clock.
func newApp(settings *models.Settings, db *store.DB, nowFn func() time.Time) *App {
	a := &App{
		settings:      settings,
		db:            db,
		nowFn:         nowFn,
		predService:   prediction.NewService(db, settings.Clone().LookbackDays, nowFn),
		scheduler:     schedule.New(schedule.ConfigFromSettings(settings)),
		notifyManager: notifications.NewManager(settings),
		detector:      activity.NewDetector(nowFn),
		settingsCache: cache.New[string, *models.Settings](nowFn),
		actions:       make(chan func(), 16),
		stopChan:      make(chan struct{}),
	}
	a.today = nowFn().Format("2006-01-02")
	a.lastDrinkAt = nowFn()
	return a
}

// AttachTray gives the app its tray icon. The icon's Run is driven by main.
func (a *App) AttachTray(icon *tray.Icon) {
	a.trayIcon = icon
}

// Startup runs startup housekeeping and starts the owner loop.
func (a *App) Startup() {
	if n, err := a.db.RotateOldLogs(a.nowFn()); err != nil {
		fmt.Printf("Error rotating old logs: %v\n", err)
	} else if n > 0 {
		fmt.Printf("Rotated %d expired log entries\n", n)
	}

	a.hydrateTrayHistory()

	a.mu.Lock()
	if a.isRunning {
		a.mu.Unlock()
		return
	}
	a.isRunning = true
	a.mu.Unlock()

	go a.run()
}

// run is the owner loop. All state mutation happens here.
func (a *App) run() {
	fine := time.NewTicker(fineTick)
	coarse := time.NewTicker(coarseTick)
	defer fine.Stop()
	defer coarse.Stop()

	a.refreshConsumed()
	a.refreshAll(a.nowFn())

	for {
		select {
		case now := <-fine.C:
			a.onFineTick(now)
		case now := <-coarse.C:
			a.onCoarseTick(now)
		case fn := <-a.actions:
			fn()
		case <-a.stopChan:
			return
		}
	}
}

// dispatch queues fn onto the owner loop. Safe from any goroutine.
func (a *App) dispatch(fn func()) {
	select {
	case a.actions <- fn:
	case <-a.stopChan:
	}
}

// onFineTick handles the countdown: rollover, snooze expiry and due
// reminders. It never touches the store.
func (a *App) onFineTick(now time.Time) {
	if day := now.Format("2006-01-02"); day != a.today {
		a.rollover(now, day)
	}

	if !a.reminderDue(now) {
		return
	}
	if a.detector != nil && a.detector.ShouldSuppressReminder() {
		// Mid-game or in a meeting: hold the reminder. It fires as soon as
		// the grace window passes, since lastReminderAt is not advanced.
		return
	}

	state := a.scheduler.Snapshot(now)
	settings := a.currentSettings()
	if err := a.notifyManager.SendReminder(settings.DefaultSipML, &state); err != nil {
		fmt.Printf("Notification error: %v\n", err)
	}
	a.lastReminderAt = now
}

// onCoarseTick refreshes store-backed state: consumption, prediction, pace
// alerts and the tray.
func (a *App) onCoarseTick(now time.Time) {
	a.refreshConsumed()
	a.refreshAll(now)
}

// refreshAll recomputes schedule and prediction from current knowledge and
// publishes them. Runs on the owner loop.
func (a *App) refreshAll(now time.Time) {
	state := a.scheduler.Tick(now, a.consumedML)

	result, err := a.predService.GetPrediction()
	var predPtr *models.PredictionResult
	if err != nil {
		fmt.Printf("Prediction error: %v\n", err)
	} else {
		predPtr = &result
	}

	a.publish(state, predPtr)
	a.updateTray(state, predPtr)

	if state.Phase != models.PhaseTracking {
		return
	}

	if state.Adherence == models.AdherenceBehind {
		if err := a.notifyManager.NotifyBehindPace(&state); err != nil {
			fmt.Printf("Notification error: %v\n", err)
		}
	}

	settings := a.currentSettings()
	if settings.BedtimeWarningEnabled && !a.scheduler.GoalReached() {
		closeAt := a.scheduler.WindowCloseAt(now)
		if lead := closeAt.Sub(now); lead > 0 && lead <= bedtimeWarningLead {
			remaining := int(state.GoalML - state.TotalConsumedML)
			if err := a.notifyManager.NotifyBedtimeWarning(remaining); err != nil {
				fmt.Printf("Notification error: %v\n", err)
			}
		}
	}
}

// refreshConsumed kicks off an async read of today's total. Results come
// back through the owner loop; a newer in-flight read wins.
func (a *App) refreshConsumed() {
	a.consumedGen++
	gen := a.consumedGen
	now := a.nowFn()

	go func() {
		total, err := a.db.ConsumedSince(startOfDay(now))
		a.dispatch(func() {
			if gen != a.consumedGen {
				return // superseded by a newer read
			}
			if err != nil {
				fmt.Printf("Error reading consumption: %v\n", err)
				a.scheduler.MarkStale()
				a.setTrayError(err)
				state := a.scheduler.Snapshot(a.nowFn())
				a.publish(state, nil)
				return
			}
			a.consumedML = total
		})
	}()
}

// rollover starts a fresh day: alerts re-arm and the tray history clears.
// Logged events are untouched.
func (a *App) rollover(now time.Time, day string) {
	a.today = day
	a.consumedML = 0
	a.snoozedUntil = time.Time{}
	a.notifyManager.ClearAlertState("")
	if a.trayIcon != nil {
		a.trayIcon.ResetHistory()
	}
	a.refreshConsumed()

	if n, err := a.db.RotateOldLogs(now); err != nil {
		fmt.Printf("Error rotating old logs: %v\n", err)
	} else if n > 0 {
		fmt.Printf("Rotated %d expired log entries\n", n)
	}
}

// reminderDue reports whether the adaptive interval has elapsed since the
// last drink or reminder, honoring snooze and the active window.
func (a *App) reminderDue(now time.Time) bool {
	state := a.scheduler.Snapshot(now)
	if state.Phase != models.PhaseTracking {
		return false
	}
	if now.Before(a.snoozedUntil) {
		return false
	}

	anchor := a.lastDrinkAt
	if a.lastReminderAt.After(anchor) {
		anchor = a.lastReminderAt
	}
	minutes := state.CurrentIntervalMinutes
	if a.detector != nil {
		minutes = a.detector.AdjustedInterval(minutes)
	}
	interval := time.Duration(minutes * float64(time.Minute))
	return now.Sub(anchor) >= interval
}

// currentSettings returns a recent settings snapshot, re-cloned at most
// once per TTL. Owner loop only.
func (a *App) currentSettings() *models.Settings {
	snapshot, err := a.settingsCache.GetOrCompute(settingsCacheKey, settingsTTL,
		func() (*models.Settings, error) {
			return a.settings.Clone(), nil
		})
	if err != nil {
		return a.settings.Clone()
	}
	return snapshot
}

// LogIntake records a drink. A non-positive amount uses the default sip.
// Safe from any goroutine.
func (a *App) LogIntake(amountML int) {
	a.dispatch(func() { a.logIntake(amountML) })
}

func (a *App) logIntake(amountML int) {
	now := a.nowFn()
	settings := a.currentSettings()
	if amountML <= 0 {
		amountML = settings.DefaultSipML
	}

	if _, err := a.db.AddIntake(amountML, now); err != nil {
		fmt.Printf("Error logging intake: %v\n", err)
		a.scheduler.MarkStale()
		state := a.scheduler.Snapshot(now)
		a.publish(state, nil)
		a.updateTray(state, nil)
		return
	}

	a.predService.Invalidate()
	a.lastDrinkAt = now
	a.snoozedUntil = time.Time{}

	state := a.scheduler.RecordIntake(now, amountML)
	a.publish(state, a.currentPrediction())
	a.updateTray(state, a.currentPrediction())

	if a.scheduler.GoalReached() {
		if err := a.notifyManager.NotifyGoalReached(settings.DailyGoalML); err != nil {
			fmt.Printf("Notification error: %v\n", err)
		}
	}

	// Reconcile the optimistic credit against the store.
	a.refreshConsumed()
}

// Snooze delays the next reminder by the configured duration.
func (a *App) Snooze() {
	a.dispatch(func() {
		now := a.nowFn()
		settings := a.currentSettings()
		a.snoozedUntil = now.Add(time.Duration(settings.SnoozeMinutes) * time.Minute)
		if a.trayIcon != nil {
			a.trayIcon.ShowSnoozed(a.snoozedUntil)
		}
	})
}

// ResetToday restarts today's pace tracking. History stays in the store.
func (a *App) ResetToday() {
	a.dispatch(func() {
		now := a.nowFn()
		state := a.scheduler.ResetToday(now)
		a.notifyManager.ClearAlertState("")
		a.publish(state, a.currentPrediction())
		a.updateTray(state, a.currentPrediction())
	})
}

// GetScheduleStatus returns the last published schedule state.
func (a *App) GetScheduleStatus() models.ScheduleState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastState
}

// GetPrediction returns the last published prediction, or nil before the
// first successful compute.
func (a *App) GetPrediction() *models.PredictionResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastPrediction
}

// GetSettings returns a copy of the current settings
func (a *App) GetSettings() *models.Settings {
	return a.settings.Clone()
}

// SaveSettings validates, applies and persists new settings, then fans the
// change out to the collaborators.
func (a *App) SaveSettings(settings *models.Settings) error {
	if err := a.settings.Update(settings); err != nil {
		return err
	}
	if err := a.settings.Save(); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	a.notifyManager.UpdateSettings(a.settings)
	if a.trayIcon != nil {
		a.trayIcon.UpdateSettings(a.settings)
	}

	a.dispatch(func() {
		a.settingsCache.Invalidate(settingsCacheKey)
		snapshot := a.settings.Clone()
		a.scheduler.UpdateConfig(schedule.ConfigFromSettings(a.settings))
		a.predService.SetLookbackDays(snapshot.LookbackDays)
		a.refreshAll(a.nowFn())
	})
	return nil
}

// SendTestNotification sends a test notification
func (a *App) SendTestNotification() error {
	return a.notifyManager.SendTestNotification()
}

// GetDailyTotals returns recent per-day consumption for display.
func (a *App) GetDailyTotals(days int) ([]models.DailyTotal, error) {
	return a.db.DailyTotals(days, a.nowFn())
}

// Shutdown stops the owner loop and closes the store.
func (a *App) Shutdown() {
	a.mu.Lock()
	if !a.isRunning {
		a.mu.Unlock()
		return
	}
	a.isRunning = false
	a.mu.Unlock()

	close(a.stopChan)

	if err := a.settings.Save(); err != nil {
		fmt.Printf("Error saving settings: %v\n", err)
	}
	if err := a.db.Close(); err != nil {
		fmt.Printf("Error closing store: %v\n", err)
	}
}

// Quit tears down the tray and the app.
func (a *App) Quit() {
	if a.trayIcon != nil {
		a.trayIcon.Quit()
	}
	a.Shutdown()
}

// publish makes the latest state visible to reader goroutines.
func (a *App) publish(state models.ScheduleState, prediction *models.PredictionResult) {
	a.mu.Lock()
	a.lastState = state
	if prediction != nil {
		a.lastPrediction = prediction
	}
	a.mu.Unlock()
}

func (a *App) currentPrediction() *models.PredictionResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastPrediction
}

func (a *App) updateTray(state models.ScheduleState, prediction *models.PredictionResult) {
	if a.trayIcon == nil {
		return
	}
	a.trayIcon.UpdateStatus(&state, prediction)
}

func (a *App) setTrayError(err error) {
	if a.trayIcon == nil {
		return
	}
	a.trayIcon.SetError(err)
}

// hydrateTrayHistory seeds the tooltip sparkline from recent daily totals so
// it is not empty right after startup.
func (a *App) hydrateTrayHistory() {
	if a.trayIcon == nil {
		return
	}
	totals, err := a.GetDailyTotals(tray.HistoryLen)
	if err != nil {
		fmt.Printf("Error reading daily totals: %v\n", err)
		return
	}

	// DailyTotals is newest-first; the sparkline reads left to right.
	values := make([]float64, 0, len(totals))
	for i := len(totals) - 1; i >= 0; i-- {
		values = append(values, float64(totals[i].TotalML))
	}
	a.trayIcon.SeedHistory(values)
}

func startOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

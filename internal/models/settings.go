// Package models contains data structures used throughout the application
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// ErrInvalidConfiguration is returned when settings fail validation. The
// caller keeps the prior valid configuration.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Settings contains all application settings
type Settings struct {
	mu sync.RWMutex `json:"-"`

	// Hydration goal and logging defaults
	DailyGoalML  int `json:"dailyGoalMl"`
	DefaultSipML int `json:"defaultSipMl"`

	// Reminder cadence
	BaseIntervalMinutes int `json:"baseIntervalMinutes"`
	MinIntervalMinutes  int `json:"minIntervalMinutes"`
	MaxIntervalMinutes  int `json:"maxIntervalMinutes"`
	SnoozeMinutes       int `json:"snoozeMinutes"`

	// Active window: reminders are live from start hour (inclusive) to end
	// hour (exclusive). Hours outside it are sleep hours.
	ActiveStartHour int `json:"activeStartHour"`
	ActiveEndHour   int `json:"activeEndHour"`

	// Notification settings
	EnableNotifications   bool `json:"enableNotifications"`
	BedtimeWarningEnabled bool `json:"bedtimeWarningEnabled"`
	RepeatAlertMinutes    int  `json:"repeatAlertMinutes"` // 0 = no repeat

	// History analysis
	LookbackDays int `json:"lookbackDays"` // interval statistics lookback (7-14)
}

// DefaultSettings returns settings with default values
func DefaultSettings() *Settings {
	return &Settings{
		DailyGoalML:  2000,
		DefaultSipML: 250,

		BaseIntervalMinutes: 45,
		MinIntervalMinutes:  10,
		MaxIntervalMinutes:  90,
		SnoozeMinutes:       5,

		ActiveStartHour: 8,
		ActiveEndHour:   24,

		EnableNotifications:   true,
		BedtimeWarningEnabled: true,
		RepeatAlertMinutes:    15,

		LookbackDays: 7,
	}
}

// Validate checks the settings for values the core refuses to run with.
func (s *Settings) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.DailyGoalML <= 0:
		return fmt.Errorf("%w: daily goal must be positive, got %d", ErrInvalidConfiguration, s.DailyGoalML)
	case s.DefaultSipML <= 0:
		return fmt.Errorf("%w: default sip must be positive, got %d", ErrInvalidConfiguration, s.DefaultSipML)
	case s.BaseIntervalMinutes <= 0:
		return fmt.Errorf("%w: base interval must be positive, got %d", ErrInvalidConfiguration, s.BaseIntervalMinutes)
	case s.MinIntervalMinutes <= 0 || s.MinIntervalMinutes > s.MaxIntervalMinutes:
		return fmt.Errorf("%w: interval floor/ceiling %d/%d", ErrInvalidConfiguration, s.MinIntervalMinutes, s.MaxIntervalMinutes)
	case s.ActiveStartHour < 0 || s.ActiveEndHour > 24 || s.ActiveStartHour >= s.ActiveEndHour:
		return fmt.Errorf("%w: active window %d-%d is inverted or out of range", ErrInvalidConfiguration, s.ActiveStartHour, s.ActiveEndHour)
	case s.LookbackDays < 1:
		return fmt.Errorf("%w: lookback days must be at least 1, got %d", ErrInvalidConfiguration, s.LookbackDays)
	}
	return nil
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	appDir := filepath.Join(configDir, "hydraping")
	if err := os.MkdirAll(appDir, 0750); err != nil {
		return "", err
	}

	return appDir, nil
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

// LoadFrom loads settings from the given path. A missing file loads defaults.
func (s *Settings) LoadFrom(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path) //nolint:gosec // Config path is controlled by the app, not user input
	if err != nil {
		if os.IsNotExist(err) {
			s.copySettingsFields(DefaultSettings())
			return nil
		}
		return err
	}

	// Start from defaults so fields absent from older config files keep
	// sensible values.
	s.copySettingsFields(DefaultSettings())
	return json.Unmarshal(data, s)
}

// Load loads settings from the default config path
func (s *Settings) Load() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return s.LoadFrom(path)
}

// SaveTo saves settings to the given path
func (s *Settings) SaveTo(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Save saves settings to the default config path
func (s *Settings) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return s.SaveTo(path)
}

// Clone creates a copy of the settings
func (s *Settings) Clone() *Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &Settings{}
	clone.copySettingsFields(s)
	return clone
}

// Update replaces the settings with other, after validating it. Invalid
// settings are rejected and the current values are kept.
func (s *Settings) Update(other *Settings) error {
	if err := other.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	s.copySettingsFields(other)
	return nil
}

// copySettingsFields copies all fields from other to s, excluding the mutex.
// The caller must hold the necessary locks.
func (s *Settings) copySettingsFields(other *Settings) {
	s.DailyGoalML = other.DailyGoalML
	s.DefaultSipML = other.DefaultSipML
	s.BaseIntervalMinutes = other.BaseIntervalMinutes
	s.MinIntervalMinutes = other.MinIntervalMinutes
	s.MaxIntervalMinutes = other.MaxIntervalMinutes
	s.SnoozeMinutes = other.SnoozeMinutes
	s.ActiveStartHour = other.ActiveStartHour
	s.ActiveEndHour = other.ActiveEndHour
	s.EnableNotifications = other.EnableNotifications
	s.BedtimeWarningEnabled = other.BedtimeWarningEnabled
	s.RepeatAlertMinutes = other.RepeatAlertMinutes
	s.LookbackDays = other.LookbackDays
}

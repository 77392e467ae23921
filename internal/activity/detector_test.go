package activity

import (
	"errors"
	"math"
	"testing"
	"time"
)

// testDetector returns a detector with stubbed process and CPU sources and
// a controllable clock.
func testDetector(names []string, cpuPct float64) (*Detector, *time.Time, *int) {
	now := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	scans := 0
	d := NewDetector(func() time.Time { return now })
	d.listProcesses = func() ([]string, error) {
		scans++
		return names, nil
	}
	d.cpuPercent = func() (float64, error) { return cpuPct, nil }
	return d, &now, &scans
}

func TestDetect_Priority(t *testing.T) {
	tests := []struct {
		name     string
		procs    []string
		expected Context
	}{
		{"Gaming wins over meeting", []string{"steam.exe", "zoom.exe"}, ContextGaming},
		{"Meeting wins over work", []string{"zoom.exe", "code.exe"}, ContextMeeting},
		{"Work wins over creative", []string{"code", "blender"}, ContextWorking},
		{"Creative wins over browsing", []string{"blender", "firefox"}, ContextCreative},
		{"Browser alone", []string{"firefox"}, ContextBrowsing},
		{"Case and suffix normalized", []string{"STEAM.EXE"}, ContextGaming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, _ := testDetector(tt.procs, 50)
			if got := d.Current(); got != tt.expected {
				t.Errorf("Current() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestDetect_IdleVersusUnknown(t *testing.T) {
	d, _, _ := testDetector([]string{"systemd"}, 3)
	if got := d.Current(); got != ContextIdle {
		t.Errorf("Low CPU with no known apps should be idle, got %s", got)
	}

	d, _, _ = testDetector([]string{"systemd"}, 60)
	if got := d.Current(); got != ContextUnknown {
		t.Errorf("Busy CPU with no known apps should be unknown, got %s", got)
	}
}

func TestDetect_ProcessScanErrorIsUnknown(t *testing.T) {
	d, _, _ := testDetector(nil, 0)
	d.listProcesses = func() ([]string, error) {
		return nil, errors.New("access denied")
	}

	if got := d.Current(); got != ContextUnknown {
		t.Errorf("Scan failure should report unknown, got %s", got)
	}
}

func TestCurrent_CachesScans(t *testing.T) {
	d, now, scans := testDetector([]string{"firefox"}, 50)

	for i := 0; i < 5; i++ {
		d.Current()
	}
	if *scans != 1 {
		t.Errorf("Expected 1 process scan within the cache window, got %d", *scans)
	}

	*now = now.Add(11 * time.Second)
	d.Current()
	if *scans != 2 {
		t.Errorf("Expected a rescan after the cache window, got %d", *scans)
	}
}

func TestShouldSuppressReminder_GamingGrace(t *testing.T) {
	d, now, _ := testDetector([]string{"steam"}, 50)

	// Session just started: suppress.
	d.Current()
	if !d.ShouldSuppressReminder() {
		t.Error("Fresh gaming session should suppress reminders")
	}

	// 50 minutes into the same session: the grace window has passed.
	d.history = []sample{{at: now.Add(-50 * time.Minute), ctx: ContextGaming}}
	if d.ShouldSuppressReminder() {
		t.Error("Long gaming session should no longer suppress")
	}
}

func TestShouldSuppressReminder_MeetingGrace(t *testing.T) {
	d, now, _ := testDetector([]string{"zoom"}, 50)

	d.Current()
	if !d.ShouldSuppressReminder() {
		t.Error("Fresh meeting should suppress reminders")
	}

	d.history = []sample{{at: now.Add(-16 * time.Minute), ctx: ContextMeeting}}
	if d.ShouldSuppressReminder() {
		t.Error("Meeting past the grace window should not suppress")
	}
}

func TestShouldSuppressReminder_OtherContexts(t *testing.T) {
	for _, procs := range [][]string{{"code"}, {"firefox"}, {"blender"}} {
		d, _, _ := testDetector(procs, 50)
		if d.ShouldSuppressReminder() {
			t.Errorf("Context for %v must not suppress reminders", procs)
		}
	}
}

func TestAdjustedInterval_Factors(t *testing.T) {
	tests := []struct {
		name     string
		procs    []string
		cpu      float64
		expected float64
	}{
		{"Gaming stretches", []string{"steam"}, 50, 45 * 1.3},
		{"Meeting stretches most", []string{"zoom"}, 50, 45 * 1.5},
		{"Working unchanged", []string{"code"}, 50, 45},
		{"Idle tightens", []string{"systemd"}, 3, 45 * 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, _ := testDetector(tt.procs, tt.cpu)
			if got := d.AdjustedInterval(45); math.Abs(got-tt.expected) > 0.01 {
				t.Errorf("AdjustedInterval(45) = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAdjustedInterval_LongSessionTightens(t *testing.T) {
	d, now, _ := testDetector([]string{"code"}, 50)

	d.Current()
	d.history = []sample{{at: now.Add(-2 * time.Hour), ctx: ContextWorking}}

	if got := d.AdjustedInterval(45); math.Abs(got-45*0.9) > 0.01 {
		t.Errorf("Two-hour session should tighten the interval, got %v", got)
	}
}

func TestAdjustedInterval_Bounds(t *testing.T) {
	d, _, _ := testDetector([]string{"systemd"}, 3) // idle, factor 0.8

	if got := d.AdjustedInterval(4); got != minAdjustedMinutes {
		t.Errorf("Expected floor %d, got %v", minAdjustedMinutes, got)
	}

	d2, _, _ := testDetector([]string{"zoom"}, 50) // meeting, factor 1.5
	if got := d2.AdjustedInterval(400); got != maxAdjustedMinutes {
		t.Errorf("Expected ceiling %d, got %v", maxAdjustedMinutes, got)
	}
}

func TestCurrentDuration_TracksContextRuns(t *testing.T) {
	d, now, _ := testDetector(nil, 0)

	d.history = []sample{
		{at: now.Add(-30 * time.Minute), ctx: ContextWorking},
		{at: now.Add(-20 * time.Minute), ctx: ContextGaming},
		{at: now.Add(-10 * time.Minute), ctx: ContextGaming},
	}

	if got := d.currentDuration(); math.Abs(got-20) > 0.01 {
		t.Errorf("Expected 20 minutes in the current context, got %v", got)
	}
}

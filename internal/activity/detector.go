// Package activity detects what the user is doing from running processes,
// so reminders can back off during games and meetings and lean in when the
// machine is idle.
package activity

import (
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/hydraping/hydraping/internal/cache"
)

// Context is the detected user activity.
type Context string

const (
	ContextGaming   Context = "gaming"
	ContextMeeting  Context = "meeting"
	ContextWorking  Context = "working"
	ContextCreative Context = "creative"
	ContextBrowsing Context = "browsing"
	ContextIdle     Context = "idle"
	ContextUnknown  Context = "unknown"
)

const (
	// detectTTL bounds how often the process table is scanned.
	detectTTL = 10 * time.Second

	maxHistory = 100

	// idleCPUPercent: below this, a machine with no recognized apps is idle.
	idleCPUPercent = 10

	// Suppression windows: reminders stay quiet for the first stretch of a
	// gaming session or a meeting, then resume.
	gamingGraceMinutes  = 45
	meetingGraceMinutes = 15

	// Sessions longer than this get slightly more frequent reminders.
	longSessionMinutes = 90

	// Bounds for the context-adjusted interval, in minutes.
	minAdjustedMinutes = 5
	maxAdjustedMinutes = 240

	contextCacheKey = "context"
)

// Application categorization, matched against lowercased process names with
// any .exe suffix stripped. Priority: gaming > meeting > working > creative
// > browsing.
var (
	gamingApps = newNameSet(
		"steam", "steamwebhelper", "gameoverlayui",
		"epicgameslauncher", "origin", "battle.net",
		"gog galaxy", "ubisoft game launcher",
		"valorant", "league of legends", "dota2",
		"csgo", "cs2", "minecraft", "roblox",
		"fortnite", "apex legends", "overwatch",
		"gta5", "witcher3", "cyberpunk2077",
		"eldenring", "wow", "ffxiv",
	)

	meetingApps = newNameSet(
		"teams", "zoom", "skype", "webexmta",
		"gotomeeting", "slack", "discord",
	)

	workApps = newNameSet(
		"excel", "winword", "powerpnt", "outlook",
		"code", "devenv", "pycharm64", "idea64",
		"sublime_text", "notepad++", "atom",
		"rider64", "webstorm64", "phpstorm64",
		"datagrip64", "goland64", "rubymine64",
	)

	creativeApps = newNameSet(
		"photoshop", "illustrator", "indesign",
		"premiere pro", "after effects", "audition",
		"blender", "unity", "unrealengine",
		"fl64", "ableton live", "cubase",
		"gimp", "inkscape", "krita",
	)

	browserApps = newNameSet(
		"chrome", "firefox", "msedge", "opera",
		"brave", "vivaldi", "safari",
	)
)

// intervalFactors scale the reminder interval per context. Idle is a good
// time to drink; a meeting is a bad time to interrupt.
var intervalFactors = map[Context]float64{
	ContextGaming:   1.3,
	ContextWorking:  1.0,
	ContextMeeting:  1.5,
	ContextCreative: 1.2,
	ContextBrowsing: 0.9,
	ContextIdle:     0.8,
	ContextUnknown:  1.0,
}

type sample struct {
	at  time.Time
	ctx Context
}

// Detector classifies the user's current activity from the process table.
// It must be driven from a single owner goroutine; see the cache package.
type Detector struct {
	nowFn func() time.Time

	// Replaceable in tests; gopsutil in production.
	listProcesses func() ([]string, error)
	cpuPercent    func() (float64, error)

	cache   *cache.Cache[string, Context]
	history []sample
}

// NewDetector creates a detector backed by gopsutil. A nil nowFn uses
// time.Now.
func NewDetector(nowFn func() time.Time) *Detector {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Detector{
		nowFn:         nowFn,
		listProcesses: runningProcessNames,
		cpuPercent:    currentCPUPercent,
		cache:         cache.New[string, Context](nowFn),
	}
}

// Current returns the detected context, rescanning the process table at
// most once per cache window.
func (d *Detector) Current() Context {
	ctx, _ := d.cache.GetOrCompute(contextCacheKey, detectTTL, func() (Context, error) {
		c := d.detect()
		d.record(c)
		return c, nil
	})
	return ctx
}

// ShouldSuppressReminder reports whether a due reminder should be held back:
// the opening stretch of a gaming session or a meeting is a bad moment to
// interrupt. The reminder fires once the grace window passes.
func (d *Detector) ShouldSuppressReminder() bool {
	ctx := d.Current()
	duration := d.currentDuration()

	switch ctx {
	case ContextGaming:
		return duration < gamingGraceMinutes
	case ContextMeeting:
		return duration < meetingGraceMinutes
	default:
		return false
	}
}

// AdjustedInterval scales a base reminder interval for the current context,
// shortening it further for very long sessions, within fixed bounds.
func (d *Detector) AdjustedInterval(baseMinutes float64) float64 {
	factor, ok := intervalFactors[d.Current()]
	if !ok {
		factor = 1.0
	}
	if d.currentDuration() > longSessionMinutes {
		factor *= 0.9
	}

	adjusted := baseMinutes * factor
	if adjusted < minAdjustedMinutes {
		return minAdjustedMinutes
	}
	if adjusted > maxAdjustedMinutes {
		return maxAdjustedMinutes
	}
	return adjusted
}

// detect classifies the process table by priority, falling back to a CPU
// check to distinguish idle from unknown.
func (d *Detector) detect() Context {
	names, err := d.listProcesses()
	if err != nil {
		return ContextUnknown
	}

	running := make(map[string]bool, len(names))
	for _, name := range names {
		running[normalizeName(name)] = true
	}

	switch {
	case anyRunning(running, gamingApps):
		return ContextGaming
	case anyRunning(running, meetingApps):
		return ContextMeeting
	case anyRunning(running, workApps):
		return ContextWorking
	case anyRunning(running, creativeApps):
		return ContextCreative
	case anyRunning(running, browserApps):
		return ContextBrowsing
	}

	percent, err := d.cpuPercent()
	if err != nil {
		return ContextUnknown
	}
	if percent < idleCPUPercent {
		return ContextIdle
	}
	return ContextUnknown
}

func (d *Detector) record(ctx Context) {
	d.history = append(d.history, sample{at: d.nowFn(), ctx: ctx})
	if len(d.history) > maxHistory {
		d.history = d.history[1:]
	}
}

// currentDuration returns how long, in minutes, the latest context has been
// uninterrupted in the detection history.
func (d *Detector) currentDuration() float64 {
	if len(d.history) == 0 {
		return 0
	}

	current := d.history[len(d.history)-1].ctx
	start := d.history[len(d.history)-1].at
	for i := len(d.history) - 1; i >= 0; i-- {
		if d.history[i].ctx != current {
			break
		}
		start = d.history[i].at
	}
	return d.nowFn().Sub(start).Minutes()
}

func normalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}

func newNameSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func anyRunning(running, apps map[string]bool) bool {
	for name := range apps {
		if running[name] {
			return true
		}
	}
	return false
}

func runningProcessNames() ([]string, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // process may have exited mid-scan
		}
		names = append(names, name)
	}
	return names, nil
}

func currentCPUPercent() (float64, error) {
	// Non-blocking: percentage since the previous call.
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

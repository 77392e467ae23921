// Package tray handles the system tray icon and menu
package tray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/energye/systray"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/hydraping/hydraping/internal/models"
	"golang.org/x/image/font/gofont/goregular"
)

const osWindows = "windows"

// HistoryLen bounds the sparkline width so Windows tooltips stay under the
// 128 character limit. Exported so callers can size history seeds to it.
const HistoryLen = 24

// Callbacks are invoked from tray menu interactions. All of them are
// optional.
type Callbacks struct {
	OnDrink  func()
	OnSnooze func()
	OnReset  func()
	OnTest   func()
	OnQuit   func()
}

// Icon represents the tray icon manager
type Icon struct {
	mu        sync.Mutex
	settings  *models.Settings
	callbacks Callbacks

	menuDrink  *systray.MenuItem
	menuSnooze *systray.MenuItem
	menuReset  *systray.MenuItem
	menuTest   *systray.MenuItem
	menuQuit   *systray.MenuItem

	lastState      *models.ScheduleState
	lastPrediction *models.PredictionResult
	history        []float64 // consumed ml over recent updates, for the sparkline
}

// NewIcon creates a new tray icon manager
func NewIcon(settings *models.Settings, callbacks Callbacks) *Icon {
	return &Icon{
		settings:  settings,
		callbacks: callbacks,
		history:   make([]float64, 0, HistoryLen),
	}
}

// Run starts the system tray - must be called from main goroutine
func (t *Icon) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit exits the system tray
func (t *Icon) Quit() {
	systray.Quit()
}

// onReady is called when the tray is ready
func (t *Icon) onReady() {
	systray.SetIcon(t.generateIcon("--", 0))
	systray.SetTitle("HydraPing")
	systray.SetTooltip("HydraPing - Loading...")

	// Left click logs a default drink, the most frequent action.
	systray.SetOnClick(func(_ systray.IMenu) {
		if t.callbacks.OnDrink != nil {
			t.callbacks.OnDrink()
		}
	})

	t.menuDrink = systray.AddMenuItem(t.drinkLabel(), "Log a drink")
	t.menuSnooze = systray.AddMenuItem(t.snoozeLabel(), "Delay the next reminder")
	t.menuReset = systray.AddMenuItem("Reset today", "Restart today's pace tracking")
	systray.AddSeparator()
	t.menuTest = systray.AddMenuItem("Test notification", "Check that notifications work")
	t.menuQuit = systray.AddMenuItem("Quit", "Quit the application")

	t.menuDrink.Click(func() {
		if t.callbacks.OnDrink != nil {
			t.callbacks.OnDrink()
		}
	})
	t.menuSnooze.Click(func() {
		if t.callbacks.OnSnooze != nil {
			t.callbacks.OnSnooze()
		}
	})
	t.menuReset.Click(func() {
		if t.callbacks.OnReset != nil {
			t.callbacks.OnReset()
		}
	})
	t.menuTest.Click(func() {
		if t.callbacks.OnTest != nil {
			t.callbacks.OnTest()
		}
	})
	t.menuQuit.Click(func() {
		if t.callbacks.OnQuit != nil {
			t.callbacks.OnQuit()
		}
	})
}

// onExit is called when the tray is being closed
func (t *Icon) onExit() {
	// Cleanup if needed
}

// UpdateStatus updates the tray icon with the current schedule state and
// prediction.
func (t *Icon) UpdateStatus(state *models.ScheduleState, prediction *models.PredictionResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastState = state
	t.lastPrediction = prediction

	t.history = append(t.history, state.TotalConsumedML)
	if len(t.history) > HistoryLen {
		t.history = t.history[1:]
	}

	percent := progressPercent(state)
	percentStr := fmt.Sprintf("%d%%", percent)

	systray.SetTitle(percentStr)
	systray.SetTooltip(t.buildTooltip(state, prediction, percentStr))

	iconBytes := t.generateIcon(percentStr, float64(percent)/100)
	if iconBytes != nil {
		systray.SetIcon(iconBytes)
	}
}

// buildTooltip formats the tooltip for the current platform. Caller holds
// the mutex.
func (t *Icon) buildTooltip(state *models.ScheduleState, prediction *models.PredictionResult, percentStr string) string {
	if runtime.GOOS == osWindows {
		// Windows has a 128 UTF-16 character limit for tooltips, so use a
		// compact format.
		sparkline := t.generateCompactSparkline()
		staleIndicator := ""
		if state.Stale {
			staleIndicator = " ⚠"
		}
		compact := fmt.Sprintf("%s %s%s", percentStr, t.formatCompactPace(state.Adherence), staleIndicator)
		if prediction != nil {
			compact += " " + t.formatCompactDuration(int(prediction.ETAMinutes))
		}
		if sparkline == "" {
			return compact
		}
		return compact + "\n" + sparkline
	}

	tooltip := fmt.Sprintf("%.0f / %.0fml (%s)", state.TotalConsumedML, state.GoalML, percentStr)
	if sparkline := t.generateMultiLineSparkline(); sparkline != "" {
		tooltip += "\n" + sparkline
	}
	tooltip += fmt.Sprintf("\nPace: %s", state.PaceLabel())
	if prediction != nil {
		tooltip += fmt.Sprintf("\nNext drink: %s (%s)",
			t.formatDuration(int(prediction.ETAMinutes)), prediction.Quality)
	}
	if state.Stale {
		tooltip += "\n⚠️ Showing last known data"
	}
	return tooltip
}

// ShowSnoozed marks the tray as snoozed until the given time.
func (t *Icon) ShowSnoozed(until time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	systray.SetTitle("💤")
	systray.SetTooltip(fmt.Sprintf("Snoozed until %s", until.Format("15:04")))
}

// SetError sets an error state on the tray
func (t *Icon) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	systray.SetTitle("⚠️")
	systray.SetTooltip(fmt.Sprintf("Error: %v", err))
	systray.SetIcon(t.generateIcon("!", 0))
}

// drinkLabel names the drink menu entry after the configured sip size.
func (t *Icon) drinkLabel() string {
	return fmt.Sprintf("Drink %dml", t.settings.Clone().DefaultSipML)
}

func (t *Icon) snoozeLabel() string {
	return fmt.Sprintf("Snooze %dm", t.settings.Clone().SnoozeMinutes)
}

// progressPercent converts consumption into 0-100 toward the daily goal.
func progressPercent(state *models.ScheduleState) int {
	if state == nil || state.GoalML <= 0 {
		return 0
	}
	percent := int(math.Round(state.TotalConsumedML / state.GoalML * 100))
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// formatDuration formats minutes into a human-readable duration
func (t *Icon) formatDuration(minutes int) string {
	if minutes < 1 {
		return "now"
	}
	if minutes == 1 {
		return "in 1 minute"
	}
	if minutes < 60 {
		return fmt.Sprintf("in %d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "in 1 hour"
	}
	return fmt.Sprintf("in %d hours", hours)
}

// formatCompactPace returns a compact pace string for Windows tooltips
func (t *Icon) formatCompactPace(adherence models.Adherence) string {
	switch adherence {
	case models.AdherenceBehind:
		return "↓Behind"
	case models.AdherenceAhead:
		return "↑Ahead"
	default:
		return "✓OK"
	}
}

// formatCompactDuration formats minutes into a compact duration for Windows
func (t *Icon) formatCompactDuration(minutes int) string {
	if minutes < 1 {
		return "now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	return fmt.Sprintf("%dh", hours)
}

// generateCompactSparkline creates a 2-line compact sparkline for Windows
func (t *Icon) generateCompactSparkline() string {
	if len(t.history) < 2 {
		return ""
	}

	minVal := t.history[0]
	maxVal := t.history[0]
	for _, v := range t.history {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	rangeVal := maxVal - minVal
	if rangeVal == 0 {
		rangeVal = 1 // Avoid division by zero
	}

	// Each column is one sample rendered across two lines of Braille
	// blocks, a bar growing from the bottom.
	var topLine, bottomLine bytes.Buffer
	for _, val := range t.history {
		normalized := (val - minVal) / rangeVal
		height := normalized * 4.0

		var topChar, bottomChar rune
		switch {
		case height >= 4:
			topChar, bottomChar = '⣿', '⣿'
		case height >= 3.5:
			topChar, bottomChar = '⣶', '⣿'
		case height >= 3:
			topChar, bottomChar = '⣤', '⣿'
		case height >= 2.5:
			topChar, bottomChar = '⣀', '⣿'
		case height >= 2:
			topChar, bottomChar = '⠀', '⣿'
		case height >= 1.5:
			topChar, bottomChar = '⠀', '⣶'
		case height >= 1:
			topChar, bottomChar = '⠀', '⣤'
		default:
			topChar, bottomChar = '⠀', '⣀'
		}

		topLine.WriteRune(topChar)
		bottomLine.WriteRune(bottomChar)
	}

	return topLine.String() + "\n" + bottomLine.String()
}

// generateMultiLineSparkline creates a multi-line Braille chart of the
// consumption history for Linux/macOS tooltips.
func (t *Icon) generateMultiLineSparkline() string {
	if len(t.history) < 2 {
		return ""
	}

	height := 6
	minVal := t.history[0]
	maxVal := t.history[0]
	for _, v := range t.history {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	// Anchor the chart at zero so the bars read as fill level.
	minVal = 0
	if maxVal <= minVal {
		maxVal = minVal + 1
	}
	rangeVal := maxVal - minVal

	// Empty, 1/4, 1/2, 3/4, Full
	blocks := []rune{'⠀', '⣀', '⣤', '⣶', '⣿'}
	subBlocksPerLine := 4.0

	rows := make([][]rune, height)
	width := len(t.history)
	for i := 0; i < height; i++ {
		rows[i] = make([]rune, width)
		for j := 0; j < width; j++ {
			rows[i][j] = '⠀'
		}
	}

	for x, val := range t.history {
		normalized := (val - minVal) / rangeVal
		totalSubBlocks := normalized * float64(height) * subBlocksPerLine

		for y := 0; y < height; y++ {
			lineIdx := height - 1 - y
			lineStart := float64(y) * subBlocksPerLine
			lineEnd := float64(y+1) * subBlocksPerLine

			if totalSubBlocks >= lineEnd {
				rows[lineIdx][x] = '⣿'
			} else if totalSubBlocks > lineStart {
				remainder := int(math.Round(totalSubBlocks - lineStart))
				if remainder < 0 {
					remainder = 0
				}
				if remainder >= len(blocks) {
					remainder = len(blocks) - 1
				}
				rows[lineIdx][x] = blocks[remainder]
			}
		}
	}

	var result bytes.Buffer
	for i := 0; i < height; i++ {
		result.WriteString(string(rows[i]))
		if i < height-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// generateIcon renders a water-level icon: a rounded tile filled from the
// bottom in proportion to progress, with the percent overlaid.
func (t *Icon) generateIcon(text string, fill float64) []byte {
	const (
		width  = 64 // Higher resolution for better scaling
		height = 64
		radius = 16
	)

	if fill < 0 {
		fill = 0
	}
	if fill > 1 {
		fill = 1
	}

	dc := gg.NewContext(width, height)

	// Transparent background
	dc.SetRGBA(0, 0, 0, 0)
	dc.Clear()

	// Dark tile base
	dc.SetRGB255(31, 41, 55)
	dc.DrawRoundedRectangle(0, 0, float64(width), float64(height), float64(radius))
	dc.Fill()

	// Water level in the pace color, clipped to the tile
	r, g, b := parseHexColor(t.paceColor())
	dc.DrawRoundedRectangle(0, 0, float64(width), float64(height), float64(radius))
	dc.Clip()
	fillHeight := float64(height) * fill
	dc.SetRGB255(int(r), int(g), int(b))
	dc.DrawRectangle(0, float64(height)-fillHeight, float64(width), fillHeight)
	dc.Fill()
	dc.ResetClip()

	// Percent text
	dc.SetRGB255(255, 255, 255)
	if err := t.loadFont(dc, 26); err == nil {
		dc.DrawStringAnchored(text, width/2, height/2-2, 0.5, 0.5)
	}

	// On Windows, convert to ICO format; otherwise use PNG
	if runtime.GOOS == osWindows {
		return imageToICO(dc.Image())
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil
	}
	return buf.Bytes()
}

// loadFont helper to load font safely
func (t *Icon) loadFont(dc *gg.Context, size float64) error {
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return err
	}
	face := truetype.NewFace(font, &truetype.Options{Size: size})
	dc.SetFontFace(face)
	return nil
}

// paceColor returns the fill color for the current state
func (t *Icon) paceColor() string {
	if t.lastState == nil {
		return "#808080" // Gray for unknown
	}
	if t.lastState.Stale {
		return "#9ca3af" // Gray-400 for stale data
	}

	switch t.lastState.Adherence {
	case models.AdherenceBehind:
		return "#f97316" // Orange
	case models.AdherenceAhead:
		return "#60a5fa" // Blue
	default:
		return "#4ade80" // Green
	}
}

// parseHexColor parses a hex color string to RGB values
func parseHexColor(hex string) (r, g, b byte) {
	if len(hex) == 7 && hex[0] == '#' {
		_, _ = fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	}
	return
}

// UpdateSettings updates the settings reference and relabels the menu.
func (t *Icon) UpdateSettings(settings *models.Settings) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings = settings

	if t.menuDrink != nil {
		t.menuDrink.SetTitle(t.drinkLabel())
	}
	if t.menuSnooze != nil {
		t.menuSnooze.SetTitle(t.snoozeLabel())
	}
}

// SeedHistory preloads the sparkline, typically with recent daily totals at
// startup. Only the most recent HistoryLen values are kept.
func (t *Icon) SeedHistory(values []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(values) > HistoryLen {
		values = values[len(values)-HistoryLen:]
	}
	t.history = append(t.history[:0], values...)
}

// ResetHistory clears the sparkline, used at date rollover.
func (t *Icon) ResetHistory() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = t.history[:0]
}

// IsTraySupported returns true if system tray is supported on this platform
func IsTraySupported() bool {
	switch runtime.GOOS {
	case "linux", "windows", "darwin":
		return true
	default:
		return false
	}
}

// imageToICO converts an image to ICO format
// ICO format structure:
// - ICONDIR header (6 bytes)
// - ICONDIRENTRY for each image (16 bytes)
// - PNG data for each image
func imageToICO(img image.Image) []byte {
	var buf bytes.Buffer

	// First, encode image as PNG
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil
	}
	pngData := pngBuf.Bytes()

	// ICO file header (ICONDIR)
	// 0-1: Reserved (must be 0)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(0))
	// 2-3: Type (1 = ICO, 2 = CUR)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	// 4-5: Number of images
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))

	// ICONDIRENTRY for the image
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Width (0 = 256)
	if width >= 256 {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(byte(width))
	}
	// Height (0 = 256)
	if height >= 256 {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(byte(height))
	}
	// Color palette (0 = no palette)
	buf.WriteByte(0)
	// Reserved (must be 0)
	buf.WriteByte(0)
	// Color planes (0 or 1)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	// Bits per pixel
	_ = binary.Write(&buf, binary.LittleEndian, uint16(32))
	// Size of image data
	// #nosec G115 -- PNG size is limited by memory and will not overflow uint32
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	// Offset to image data (header + directory entry = 6 + 16 = 22)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(22))

	// Append PNG data
	buf.Write(pngData)

	return buf.Bytes()
}

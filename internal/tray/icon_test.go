package tray

import (
	"image"
	"strings"
	"testing"

	"github.com/hydraping/hydraping/internal/models"
)

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name     string
		consumed float64
		goal     float64
		expected int
	}{
		{"Empty", 0, 2000, 0},
		{"Half", 1000, 2000, 50},
		{"Rounded", 1250, 2000, 63},
		{"Full", 2000, 2000, 100},
		{"Over goal clamps", 2600, 2000, 100},
		{"Zero goal", 500, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &models.ScheduleState{TotalConsumedML: tt.consumed, GoalML: tt.goal}
			if got := progressPercent(state); got != tt.expected {
				t.Errorf("progressPercent() = %d, want %d", got, tt.expected)
			}
		})
	}

	if progressPercent(nil) != 0 {
		t.Error("Nil state should report 0")
	}
}

func TestPaceColor(t *testing.T) {
	icon := &Icon{}

	if icon.paceColor() != "#808080" {
		t.Error("Unknown state should be gray")
	}

	icon.lastState = &models.ScheduleState{Adherence: models.AdherenceBehind}
	if icon.paceColor() != "#f97316" {
		t.Error("Behind pace should be orange")
	}

	icon.lastState = &models.ScheduleState{Adherence: models.AdherenceOnPace}
	if icon.paceColor() != "#4ade80" {
		t.Error("On pace should be green")
	}

	icon.lastState = &models.ScheduleState{Adherence: models.AdherenceAhead}
	if icon.paceColor() != "#60a5fa" {
		t.Error("Ahead should be blue")
	}

	icon.lastState = &models.ScheduleState{Adherence: models.AdherenceAhead, Stale: true}
	if icon.paceColor() != "#9ca3af" {
		t.Error("Stale data should be gray regardless of pace")
	}
}

func TestGenerateCompactSparkline(t *testing.T) {
	icon := &Icon{
		history: []float64{0, 250, 500, 750, 1000, 1250, 1500, 1750, 2000},
	}

	sparkline := icon.generateCompactSparkline()
	if sparkline == "" {
		t.Error("Expected sparkline to be generated, got empty string")
	}

	// Should have 2 lines (top + bottom) separated by newline
	lines := strings.Split(sparkline, "\n")
	if len(lines) != 2 {
		t.Errorf("Expected 2 lines in sparkline, got %d", len(lines))
	}

	// Both lines should have same length as history
	for i, line := range lines {
		if len([]rune(line)) != len(icon.history) {
			t.Errorf("Line %d: expected length %d, got %d", i, len(icon.history), len([]rune(line)))
		}
	}

	t.Logf("Compact Sparkline:\n%s", sparkline)
}

func TestGenerateCompactSparkline_Empty(t *testing.T) {
	icon := &Icon{history: []float64{}}

	if icon.generateCompactSparkline() != "" {
		t.Error("Expected empty sparkline for empty history")
	}
}

func TestGenerateCompactSparkline_SingleValue(t *testing.T) {
	icon := &Icon{history: []float64{500}}

	if icon.generateCompactSparkline() != "" {
		t.Error("Expected empty sparkline for single value history")
	}
}

func TestGenerateMultiLineSparkline(t *testing.T) {
	icon := &Icon{
		history: []float64{0, 250, 250, 500, 750, 750, 1000, 1500, 2000},
	}

	chart := icon.generateMultiLineSparkline()
	if chart == "" {
		t.Fatal("Expected chart to be generated, got empty string")
	}

	brailleChars := "⠀⣀⣤⣶⣿"
	containsBraille := false
	for _, r := range chart {
		if strings.ContainsRune(brailleChars, r) {
			containsBraille = true
			break
		}
	}
	if !containsBraille {
		t.Error("Expected chart to contain Braille characters")
	}

	t.Logf("Generated Chart:\n%s", chart)
}

func TestGenerateMultiLineSparkline_ConstantHistory(t *testing.T) {
	// A flat history must not divide by zero.
	icon := &Icon{history: []float64{0, 0, 0}}

	chart := icon.generateMultiLineSparkline()
	if chart == "" {
		t.Fatal("Chart empty")
	}
}

func TestSeedHistory(t *testing.T) {
	icon := &Icon{}

	icon.SeedHistory([]float64{100, 200, 300})
	if len(icon.history) != 3 || icon.history[0] != 100 || icon.history[2] != 300 {
		t.Errorf("Expected seeded history [100 200 300], got %v", icon.history)
	}

	// Oversized seeds keep only the most recent HistoryLen values.
	long := make([]float64, HistoryLen+10)
	for i := range long {
		long[i] = float64(i)
	}
	icon.SeedHistory(long)
	if len(icon.history) != HistoryLen {
		t.Fatalf("Expected history capped at %d, got %d", HistoryLen, len(icon.history))
	}
	if icon.history[0] != 10 || icon.history[HistoryLen-1] != float64(HistoryLen+9) {
		t.Errorf("Expected the most recent values kept, got %v", icon.history)
	}
}

func TestBuildTooltip_CompactLength(t *testing.T) {
	// Windows tooltips are limited to 128 UTF-16 characters; the compact
	// format must stay under that even with a full sparkline.
	icon := &Icon{
		settings: models.DefaultSettings(),
	}
	for i := 0; i < HistoryLen; i++ {
		icon.history = append(icon.history, float64(i*100))
	}

	state := &models.ScheduleState{
		TotalConsumedML: 1250,
		GoalML:          2000,
		Adherence:       models.AdherenceBehind,
		Stale:           true,
	}
	prediction := &models.PredictionResult{ETAMinutes: 38, Quality: models.QualityGood}

	sparkline := icon.generateCompactSparkline()
	compact := "63% ↓Behind ⚠ 38m\n" + sparkline

	if n := len([]rune(compact)); n > 128 {
		t.Errorf("Compact tooltip exceeds 128 character limit: %d chars", n)
	}

	// The full tooltip must carry pace and prediction.
	full := icon.buildTooltip(state, prediction, "63%")
	if !strings.Contains(full, "Behind pace") && !strings.Contains(full, "↓Behind") {
		t.Errorf("Tooltip missing pace: %s", full)
	}
}

func TestFormatCompact(t *testing.T) {
	icon := &Icon{}

	paceTests := []struct {
		adherence models.Adherence
		expected  string
	}{
		{models.AdherenceBehind, "↓Behind"},
		{models.AdherenceAhead, "↑Ahead"},
		{models.AdherenceOnPace, "✓OK"},
	}
	for _, tt := range paceTests {
		if got := icon.formatCompactPace(tt.adherence); got != tt.expected {
			t.Errorf("formatCompactPace(%s) = %s, want %s", tt.adherence, got, tt.expected)
		}
	}

	durationTests := []struct {
		minutes  int
		expected string
	}{
		{0, "now"},
		{1, "1m"},
		{30, "30m"},
		{59, "59m"},
		{60, "1h"},
		{120, "2h"},
	}
	for _, tt := range durationTests {
		if got := icon.formatCompactDuration(tt.minutes); got != tt.expected {
			t.Errorf("formatCompactDuration(%d) = %s, want %s", tt.minutes, got, tt.expected)
		}
	}
}

func TestGenerateIcon(t *testing.T) {
	icon := &Icon{settings: models.DefaultSettings()}

	data := icon.generateIcon("50%", 0.5)
	if len(data) == 0 {
		t.Fatal("Expected icon bytes")
	}

	// Out-of-range fill values must not panic.
	if data := icon.generateIcon("0%", -0.5); len(data) == 0 {
		t.Error("Expected icon bytes for clamped low fill")
	}
	if data := icon.generateIcon("100%", 1.5); len(data) == 0 {
		t.Error("Expected icon bytes for clamped high fill")
	}
}

func TestImageToICO(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))

	data := imageToICO(img)
	if len(data) < 22 {
		t.Fatalf("ICO data too short: %d bytes", len(data))
	}

	// ICONDIR: reserved=0, type=1 (ICO), count=1
	if data[0] != 0 || data[1] != 0 {
		t.Error("Reserved field must be zero")
	}
	if data[2] != 1 || data[3] != 0 {
		t.Error("Type field must be 1 (ICO)")
	}
	if data[4] != 1 || data[5] != 0 {
		t.Error("Image count must be 1")
	}
	// ICONDIRENTRY width/height
	if data[6] != 16 || data[7] != 16 {
		t.Errorf("Expected 16x16 entry, got %dx%d", data[6], data[7])
	}
}

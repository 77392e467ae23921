package prediction

import (
	"math"
	"testing"
	"time"

	"github.com/hydraping/hydraping/internal/models"
)

func TestPredict_EmptyHistory(t *testing.T) {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	result := Predict(Summary{}, now)

	if result.Method != models.MethodRecentTrend {
		t.Errorf("Expected recent_trend method, got %s", result.Method)
	}
	if result.Confidence != 0.30 {
		t.Errorf("Expected floor confidence 0.30, got %v", result.Confidence)
	}
	if result.Quality != models.QualityPoor {
		t.Errorf("Expected poor quality, got %s", result.Quality)
	}
	if result.ETAMinutes != defaultIntervalMinutes {
		t.Errorf("Expected default interval ETA, got %v", result.ETAMinutes)
	}
}

func TestPredict_ConsistentHistoryUsesMedian(t *testing.T) {
	// 14 days of drinking every 45 minutes within a 09:00-21:00 day.
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var events []models.IntakeEvent
	for day := 0; day < 14; day++ {
		ts := start.AddDate(0, 0, day)
		dayEnd := ts.Add(12 * time.Hour)
		for ts.Before(dayEnd) {
			events = append(events, eventAt(ts, 250))
			ts = ts.Add(45 * time.Minute)
		}
	}

	last := events[len(events)-1].Timestamp
	now := last.Add(10 * time.Minute)
	result := Predict(Analyze(events, now), now)

	if result.Method != models.MethodMedian {
		t.Errorf("Expected median method, got %s", result.Method)
	}
	if math.Abs(result.ETAMinutes-35) > 3 {
		t.Errorf("Expected ETA near 35 (45 minus 10 elapsed), got %v", result.ETAMinutes)
	}
	if result.Confidence < 0.80 {
		t.Errorf("Expected confidence >= 0.80, got %v", result.Confidence)
	}
	if result.Quality != models.QualityExcellent {
		t.Errorf("Expected excellent quality, got %s", result.Quality)
	}
}

func TestPredict_OutliersDoNotSkewETA(t *testing.T) {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	summary := Summary{
		Intervals: []float64{
			38, 40, 42, 39, 41, 43, 40, 38, 44, 42,
			39, 41, 40, 43, 38, 42, 41, 40,
			460, 470,
		},
		SampleCount: 20,
		LastEventAt: now, // just drank
	}

	result := Predict(summary, now)

	if result.ETAMinutes < 30 || result.ETAMinutes > 60 {
		t.Errorf("ETA %v skewed away from the non-outlier median", result.ETAMinutes)
	}
}

func TestPredict_MeanMethodForSmallSamples(t *testing.T) {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	summary := Summary{
		Intervals:   []float64{40, 50, 45, 55},
		SampleCount: 4,
		LastEventAt: now.Add(-20 * time.Minute),
	}

	result := Predict(summary, now)

	if result.Method != models.MethodMean {
		t.Errorf("Expected mean method, got %s", result.Method)
	}
	// mean 47.5 minus 20 elapsed
	if math.Abs(result.ETAMinutes-27.5) > 0.01 {
		t.Errorf("Expected ETA 27.5, got %v", result.ETAMinutes)
	}
	if result.Quality != models.QualityFair {
		t.Errorf("Expected fair quality, got %s", result.Quality)
	}
}

func TestPredict_TrendFallbackAveragesRecentIntervals(t *testing.T) {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	summary := Summary{
		Intervals:   []float64{90, 30, 60},
		SampleCount: 3,
		LastEventAt: now,
	}

	result := Predict(summary, now)

	if result.Method != models.MethodRecentTrend {
		t.Errorf("Expected recent_trend method, got %s", result.Method)
	}
	if math.Abs(result.IntervalMinutes-60) > 0.01 {
		t.Errorf("Expected trend interval 60, got %v", result.IntervalMinutes)
	}
}

func TestPredict_ETANeverNegative(t *testing.T) {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	summary := Summary{
		Intervals:   []float64{40, 45, 50, 42, 48, 44},
		SampleCount: 6,
		LastEventAt: now.Add(-8 * time.Hour), // long overdue
	}

	result := Predict(summary, now)

	if result.ETAMinutes != 0 {
		t.Errorf("Overdue prediction must floor at 0, got %v", result.ETAMinutes)
	}
}

func TestPredict_ConfidenceMonotonicInSampleCount(t *testing.T) {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	pattern := []float64{40, 50, 60}

	// Repeating the pattern keeps mean and variance identical while the
	// sample count grows.
	repeat := func(times int) Summary {
		var intervals []float64
		for i := 0; i < times; i++ {
			intervals = append(intervals, pattern...)
		}
		return Summary{Intervals: intervals, SampleCount: len(intervals), LastEventAt: now}
	}

	prev := 0.0
	for _, times := range []int{2, 4, 8, 16} {
		result := Predict(repeat(times), now)
		if result.Confidence < prev {
			t.Errorf("Confidence decreased with more samples: %v -> %v at %d repeats",
				prev, result.Confidence, times)
		}
		prev = result.Confidence
	}
}

func TestPredict_ConfidenceBounds(t *testing.T) {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	cases := []Summary{
		{},
		{Intervals: []float64{45}, SampleCount: 1, LastEventAt: now},
		{Intervals: []float64{1, 480, 1, 480, 1, 480, 1, 480, 1, 480}, SampleCount: 10, LastEventAt: now},
		{Intervals: repeatValue(45, 500), SampleCount: 500, LastEventAt: now},
	}

	for i, summary := range cases {
		result := Predict(summary, now)
		if result.Confidence < 0.30 || result.Confidence > 0.95 {
			t.Errorf("Case %d: confidence %v outside [0.30, 0.95]", i, result.Confidence)
		}
	}
}

func TestPredict_HourBucketBlending(t *testing.T) {
	now := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

	summary := Summary{
		Intervals:   repeatValue(60, 20),
		SampleCount: 20,
		LastEventAt: now,
	}
	// Afternoons run faster than the overall pattern.
	summary.HourIntervals[14] = []float64{30, 30, 30}

	result := Predict(summary, now)

	// 0.7*60 + 0.3*30 = 51
	if math.Abs(result.IntervalMinutes-51) > 0.01 {
		t.Errorf("Expected blended interval 51, got %v", result.IntervalMinutes)
	}
}

func repeatValue(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

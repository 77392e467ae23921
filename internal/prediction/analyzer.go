package prediction

import (
	"sort"
	"time"

	"github.com/hydraping/hydraping/internal/models"
)

const (
	// Gaps shorter than a minute are double-taps; gaps longer than eight
	// hours span sleep and say nothing about drinking cadence.
	minPlausibleIntervalMin = 1
	maxPlausibleIntervalMin = 480

	// hourBucketMinSamples: hour-of-day buckets with fewer samples are
	// marked insufficient and excluded from time-of-day weighting.
	hourBucketMinSamples = 3
)

// Summary holds the interval statistics extracted from an event window.
type Summary struct {
	// Intervals are the plausible gaps in minutes between consecutive
	// drinks, oldest first, before outlier filtering.
	Intervals []float64

	// HourIntervals groups interval samples by the hour of day of the
	// completing drink.
	HourIntervals [24][]float64

	// SampleCount is len(Intervals).
	SampleCount int

	// Covered is the span between the first and last event actually seen;
	// it may be shorter than the requested lookback while history is young.
	Covered time.Duration

	// LastEventAt is the timestamp of the most recent event, zero when the
	// window is empty.
	LastEventAt time.Time
}

// HourBucket returns the interval samples for the given hour, or nil when
// the bucket has too few samples to be trusted.
func (s *Summary) HourBucket(hour int) []float64 {
	if hour < 0 || hour > 23 {
		return nil
	}
	b := s.HourIntervals[hour]
	if len(b) < hourBucketMinSamples {
		return nil
	}
	return b
}

// Analyze builds interval statistics from an event window. It is a pure
// function over the events; the input slice is not modified.
func Analyze(events []models.IntakeEvent, now time.Time) Summary {
	summary := Summary{}
	if len(events) == 0 {
		return summary
	}

	sorted := make([]models.IntakeEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Time().Before(sorted[j].Time())
	})

	summary.LastEventAt = sorted[len(sorted)-1].Time()
	summary.Covered = sorted[len(sorted)-1].Time().Sub(sorted[0].Time())

	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].Time().Sub(sorted[i-1].Time()).Minutes()
		if gap < minPlausibleIntervalMin || gap > maxPlausibleIntervalMin {
			continue
		}
		summary.Intervals = append(summary.Intervals, gap)
		hour := sorted[i].Time().Hour()
		summary.HourIntervals[hour] = append(summary.HourIntervals[hour], gap)
	}
	summary.SampleCount = len(summary.Intervals)

	return summary
}

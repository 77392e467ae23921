package prediction

import (
	"time"

	"github.com/hydraping/hydraping/internal/models"
)

// Tunable estimation constants. Chosen to favor stable predictions over
// reactive ones; validated by the property tests in predictor_test.go.
const (
	// robustSampleCount is the sample size from which the median estimate
	// and time-of-day blending are trusted.
	robustSampleCount = 10

	// minSampleCount is the sample size from which the mean estimate is
	// preferred over the recent-trend fallback.
	minSampleCount = 4

	// Weights for blending the overall median with the current hour's
	// bucket median.
	overallWeight = 0.70
	hourWeight    = 0.30

	// trendWindow is how many of the most recent intervals the fallback
	// averages.
	trendWindow = 3

	// defaultIntervalMinutes is the prior used with no history at all.
	defaultIntervalMinutes = 45

	minConfidence = 0.30
	maxConfidence = 0.95

	// trendPenalty drops confidence one tier when the fallback method ran.
	trendPenalty = 0.15
)

// Predict turns an analysis summary into an ETA-to-next-drink estimate with
// a calibrated confidence score and a coarse quality label.
func Predict(summary Summary, now time.Time) models.PredictionResult {
	filtered := FilterOutliers(summary.Intervals)
	n := len(filtered)

	var (
		interval float64
		method   models.PredictionMethod
	)
	switch {
	case n >= robustSampleCount:
		method = models.MethodMedian
		interval = median(filtered)
		if bucket := summary.HourBucket(now.Hour()); bucket != nil {
			interval = overallWeight*interval + hourWeight*median(bucket)
		}
	case n >= minSampleCount:
		method = models.MethodMean
		interval = mean(filtered)
	default:
		method = models.MethodRecentTrend
		interval = recentTrend(summary.Intervals)
	}

	eta := interval
	if !summary.LastEventAt.IsZero() {
		eta = interval - now.Sub(summary.LastEventAt).Minutes()
		if eta < 0 {
			eta = 0
		}
	}

	return models.PredictionResult{
		ETAMinutes:      eta,
		IntervalMinutes: interval,
		Confidence:      confidenceScore(filtered, method),
		Method:          method,
		Quality:         qualityTier(filtered),
		SampleCount:     n,
		ComputedAt:      now,
	}
}

// recentTrend averages the last few observed intervals, falling back to the
// default prior with no history at all.
func recentTrend(intervals []float64) float64 {
	if len(intervals) == 0 {
		return defaultIntervalMinutes
	}
	k := trendWindow
	if len(intervals) < k {
		k = len(intervals)
	}
	return mean(intervals[len(intervals)-k:])
}

// confidenceScore combines consistency (1 - CV) with a diminishing-returns
// sample-count bonus, penalized when the trend fallback ran. Clamped to
// [0.30, 0.95]: never fully certain and never without some prior.
func confidenceScore(samples []float64, method models.PredictionMethod) float64 {
	var consistency float64
	if len(samples) >= 2 {
		consistency = clamp(1-coefficientOfVariation(samples), 0, 1)
	}

	n := float64(len(samples))
	sizeBonus := 0.3 * n / (n + 5)

	score := 0.7*consistency + sizeBonus
	if method == models.MethodRecentTrend {
		score -= trendPenalty
	}
	return clamp(score, minConfidence, maxConfidence)
}

// qualityTier is a coarse bucketing of sample count and spread for display,
// independent of the continuous confidence score.
func qualityTier(samples []float64) models.PredictionQuality {
	n := len(samples)
	cv := coefficientOfVariation(samples)

	switch {
	case n >= robustSampleCount && cv <= 0.25:
		return models.QualityExcellent
	case n >= robustSampleCount && cv <= 0.50:
		return models.QualityGood
	case n >= minSampleCount:
		return models.QualityFair
	default:
		return models.QualityPoor
	}
}

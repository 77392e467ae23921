// Package prediction analyzes hydration history and predicts the next drink.
package prediction

import "math"

const (
	// madScale converts a median absolute deviation into a consistent
	// estimate of the standard deviation for normal-ish data.
	madScale = 1.4826

	// outlierZScore is the modified z-score beyond which a sample is
	// considered anomalous.
	outlierZScore = 3.5

	// filterMinKeep: filtering backs off entirely rather than degrade a
	// sample below this size.
	filterMinKeep = 4
)

// FilterOutliers strips anomalous interval samples using the median and
// median absolute deviation, which resist skew better than mean/stddev.
// The input is returned unchanged when it is too small to judge, when the
// spread is zero, or when filtering would remove more than half the sample
// or leave fewer than filterMinKeep points.
func FilterOutliers(samples []float64) []float64 {
	if len(samples) < filterMinKeep {
		return samples
	}

	med := median(samples)
	deviations := make([]float64, len(samples))
	for i, v := range samples {
		deviations[i] = math.Abs(v - med)
	}
	mad := median(deviations)
	if mad == 0 {
		// No usable spread estimate; nothing can be judged anomalous.
		return samples
	}

	kept := make([]float64, 0, len(samples))
	for _, v := range samples {
		z := math.Abs(v-med) / (madScale * mad)
		if z <= outlierZScore {
			kept = append(kept, v)
		}
	}

	if len(kept) < filterMinKeep || len(kept)*2 < len(samples) {
		return samples
	}
	return kept
}

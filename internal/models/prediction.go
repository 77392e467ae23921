// Package models contains data structures used throughout the application
package models

import "time"

// PredictionMethod identifies which estimation path produced a prediction.
type PredictionMethod string

const (
	MethodMedian      PredictionMethod = "median"
	MethodMean        PredictionMethod = "mean"
	MethodRecentTrend PredictionMethod = "recent_trend"
)

// PredictionQuality is a coarse, user-facing bucketing of how much the
// prediction can be trusted. It is derived from sample count and spread,
// independently of the continuous confidence score.
type PredictionQuality string

const (
	QualityExcellent PredictionQuality = "excellent"
	QualityGood      PredictionQuality = "good"
	QualityFair      PredictionQuality = "fair"
	QualityPoor      PredictionQuality = "poor"
)

// PredictionResult is the outcome of a next-drink prediction. Value type,
// immutable once produced.
type PredictionResult struct {
	// Minutes until the next drink is likely needed. Never negative.
	ETAMinutes float64 `json:"etaMinutes"`

	// Predicted gap between drinks, before subtracting elapsed time.
	IntervalMinutes float64 `json:"intervalMinutes"`

	// Confidence in [0.30, 0.95]. Never fully certain, never zero.
	Confidence float64 `json:"confidence"`

	Method  PredictionMethod  `json:"method"`
	Quality PredictionQuality `json:"quality"`

	// Interval samples the estimate was built from, after outlier filtering.
	SampleCount int `json:"sampleCount"`

	ComputedAt time.Time `json:"computedAt"`
}

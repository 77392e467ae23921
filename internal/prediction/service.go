package prediction

import (
	"fmt"
	"time"

	"github.com/hydraping/hydraping/internal/cache"
	"github.com/hydraping/hydraping/internal/models"
)

const (
	// predictionTTL bounds how often the full history query and analysis
	// run; a new logged event invalidates the entry regardless of TTL.
	predictionTTL = 5 * time.Minute

	// cacheGranularity rounds "now" inside the cache key so that calls a
	// few seconds apart share an entry.
	cacheGranularity = 5 * time.Minute

	// hourlyLookbackDays is the wider window used for time-of-day buckets;
	// the overall interval lookback comes from settings (7-14 days).
	hourlyLookbackDays = 14
)

// EventStore supplies recorded intake events. Implemented by the SQLite
// store; faked in tests.
type EventStore interface {
	EventsBetween(since, until time.Time) ([]models.IntakeEvent, error)
	LatestEvent() (*models.IntakeEvent, error)
}

// Service memoizes predictions over an event store. It must be driven from
// a single owner goroutine; see the cache package.
type Service struct {
	events EventStore
	nowFn  func() time.Time

	lookbackDays int

	cache   *cache.Cache[string, models.PredictionResult]
	lastKey string

	lastGood *models.PredictionResult
}

// NewService creates a prediction service. A nil nowFn uses time.Now.
func NewService(events EventStore, lookbackDays int, nowFn func() time.Time) *Service {
	if nowFn == nil {
		nowFn = time.Now
	}
	if lookbackDays < 1 {
		lookbackDays = 7
	}
	return &Service{
		events:       events,
		nowFn:        nowFn,
		lookbackDays: lookbackDays,
		cache:        cache.New[string, models.PredictionResult](nowFn),
	}
}

// SetLookbackDays updates the interval statistics lookback.
func (s *Service) SetLookbackDays(days int) {
	if days >= 1 && days != s.lookbackDays {
		s.lookbackDays = days
		s.Invalidate()
	}
}

// GetPrediction returns the current prediction, recomputing at most once per
// cache window unless an event was logged in between.
func (s *Service) GetPrediction() (models.PredictionResult, error) {
	now := s.nowFn()

	latest, err := s.events.LatestEvent()
	if err != nil {
		// Transient store failure: fall back to the last known-good result.
		if s.lastGood != nil {
			return *s.lastGood, nil
		}
		return models.PredictionResult{}, fmt.Errorf("latest event: %w", err)
	}

	var latestID int64
	if latest != nil {
		latestID = latest.ID
	}
	key := fmt.Sprintf("%d:%d", latestID, now.Truncate(cacheGranularity).Unix())

	result, err := s.cache.GetOrCompute(key, predictionTTL, func() (models.PredictionResult, error) {
		return s.compute(now)
	})
	if err != nil {
		if s.lastGood != nil {
			return *s.lastGood, nil
		}
		return models.PredictionResult{}, err
	}

	s.lastKey = key
	s.lastGood = &result
	return result, nil
}

// Invalidate drops the memoized prediction immediately. Called when a new
// event is logged.
func (s *Service) Invalidate() {
	if s.lastKey != "" {
		s.cache.Invalidate(s.lastKey)
		s.lastKey = ""
	}
}

func (s *Service) compute(now time.Time) (models.PredictionResult, error) {
	// Fetch the wider window once; hour buckets use all of it while the
	// overall interval statistics only consider the configured lookback.
	since := now.AddDate(0, 0, -hourlyLookbackDays)
	events, err := s.events.EventsBetween(since, now.Add(time.Minute))
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("query events: %w", err)
	}

	summary := Analyze(events, now)

	intervalCutoff := now.AddDate(0, 0, -s.lookbackDays)
	if intervalCutoff.After(since) {
		recent := filterEventsSince(events, intervalCutoff)
		narrower := Analyze(recent, now)
		summary.Intervals = narrower.Intervals
		summary.SampleCount = narrower.SampleCount
	}

	return Predict(summary, now), nil
}

func filterEventsSince(events []models.IntakeEvent, cutoff time.Time) []models.IntakeEvent {
	var out []models.IntakeEvent
	for _, ev := range events {
		if !ev.Timestamp.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

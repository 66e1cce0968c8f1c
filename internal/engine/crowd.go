package engine

import (
	"context"
	"log"
)

// CrowdLevel classifies a counter's current load against its estimated
// daily capacity.
type CrowdLevel string

const (
	CrowdLow      CrowdLevel = "low"
	CrowdModerate CrowdLevel = "moderate"
	CrowdHigh     CrowdLevel = "high"
	CrowdCritical CrowdLevel = "critical"
	CrowdUnknown  CrowdLevel = "unknown"
)

// CrowdMetrics is the classifier's output.
type CrowdMetrics struct {
	Level         CrowdLevel `json:"level"`
	ActiveCount   int        `json:"activeCount"`
	DailyCapacity int        `json:"dailyCapacity"`
	PaceMinutes   int        `json:"pace"`
}

// CrowdMetrics classifies the counter's current crowding. Any failure to
// load the counter or count its active tickets yields CrowdUnknown with the
// fallback pace; classification is advisory and must not fail the caller.
func (e *Engine) CrowdMetrics(ctx context.Context, placeID int64, counterName string) CrowdMetrics {
	counter, err := e.store.GetCounter(ctx, placeID, counterName)
	if err != nil {
		log.Printf("crowd: cannot load counter %d/%s: %v", placeID, counterName, err)
		return CrowdMetrics{Level: CrowdUnknown, PaceMinutes: e.cfg.FallbackPaceMinutes}
	}
	active, err := e.store.CountActiveTickets(ctx, placeID, counterName)
	if err != nil {
		log.Printf("crowd: cannot count active tickets for %d/%s: %v", placeID, counterName, err)
		return CrowdMetrics{Level: CrowdUnknown, PaceMinutes: e.cfg.FallbackPaceMinutes}
	}

	pace := e.Estimate(ctx, counter, counter.DefaultCategoryKey())
	return e.classify(int(active), counter.OperatingMinutes(), pace)
}

// classify maps active load to a level. A zero operating span means the
// counter's hours are unknown and the default capacity applies.
func (e *Engine) classify(active, operatingMinutes, pace int) CrowdMetrics {
	var capacity int
	if operatingMinutes <= 0 {
		capacity = e.cfg.DefaultDailyCapacity
	} else {
		capacity = operatingMinutes / pace
		if capacity < 1 {
			capacity = 1
		}
	}

	loadFactor := float64(active) / float64(capacity)
	level := CrowdLow
	switch {
	case loadFactor > 0.85:
		level = CrowdCritical
	case loadFactor > 0.50:
		level = CrowdHigh
	case loadFactor > 0.20:
		level = CrowdModerate
	}

	return CrowdMetrics{
		Level:         level,
		ActiveCount:   active,
		DailyCapacity: capacity,
		PaceMinutes:   pace,
	}
}

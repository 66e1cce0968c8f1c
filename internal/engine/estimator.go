package engine

import (
	"context"
	"log"
	"math"

	"virtual-queue-backend/internal/model"
)

// EstimateBreakdown reports the components of a duration estimate: the
// staff-declared baseline, the system average from recent completions, and
// the blended final value.
type EstimateBreakdown struct {
	StaffMinutes  float64 `json:"staff"`
	SystemMinutes float64 `json:"system"`
	FinalMinutes  int     `json:"final"`
}

// Outlier bounds for recorded service durations. Entries at or below the
// floor are logged-but-abandoned sessions; the ceiling scales with the staff
// baseline so unusually slow counters keep their slow samples.
const outlierFloorMinutes = 0.2

// Estimate returns the blended expected service duration in whole minutes
// for a (counter, category) pair. It never returns less than the configured
// minimum pace.
func (e *Engine) Estimate(ctx context.Context, counter *model.Counter, categoryID string) int {
	return e.DetailedEstimate(ctx, counter, categoryID).FinalMinutes
}

// DetailedEstimate is Estimate with the component values exposed.
//
// Policy: a closed counter is estimated from the staff baseline alone. An
// open counter blends 30% staff baseline with 70% system average, where the
// system average is the mean of the recent valid completions (at least 3
// required) and falls back to the staff baseline otherwise. Storage errors
// degrade to the staff baseline rather than failing the caller.
func (e *Engine) DetailedEstimate(ctx context.Context, counter *model.Counter, categoryID string) EstimateBreakdown {
	staff := e.staffBaseline(counter, categoryID)

	if counter.Closed {
		return EstimateBreakdown{
			StaffMinutes:  staff,
			SystemMinutes: staff,
			FinalMinutes:  e.floorPace(math.Round(staff)),
		}
	}

	system := staff
	history, err := e.store.FindRecentCompleted(ctx, counter.PlaceID, counter.Name, categoryID, e.cfg.HistoryLimit)
	if err != nil {
		log.Printf("estimator: falling back to staff baseline for %s/%s: %v", counter.Name, categoryID, err)
	} else {
		ceiling := math.Max(120, 4*staff)
		var sum float64
		var valid int
		for _, t := range history {
			d := t.ServiceDuration
			if d <= outlierFloorMinutes || d >= ceiling {
				continue
			}
			sum += d
			valid++
		}
		if valid >= 3 {
			system = sum / float64(valid)
		}
	}

	final := e.floorPace(math.Round(0.3*staff + 0.7*system))
	return EstimateBreakdown{
		StaffMinutes:  staff,
		SystemMinutes: system,
		FinalMinutes:  final,
	}
}

// staffBaseline returns the staff-declared average for a category, defaulting
// to the configured pace when the category is absent or unset.
func (e *Engine) staffBaseline(counter *model.Counter, categoryID string) float64 {
	if cat := counter.Category(categoryID); cat != nil && cat.AvgMinutes > 0 {
		return cat.AvgMinutes
	}
	return float64(e.cfg.DefaultPaceMinutes)
}

func (e *Engine) floorPace(minutes float64) int {
	if minutes < float64(e.cfg.MinPaceMinutes) {
		return e.cfg.MinPaceMinutes
	}
	return int(minutes)
}

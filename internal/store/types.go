package store

import "time"

// Timestamps carries the optional timestamp fields a status transition may
// set. Nil fields are left untouched.
type Timestamps struct {
	ServingStartedAt *time.Time
	CompletedAt      *time.Time
	ServiceDuration  float64 // minutes; written only when positive
}

// PlaceSummary is the aggregate row returned by ListPlaces.
type PlaceSummary struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Address       string `json:"address"`
	TotalCounters int64  `json:"totalCounters"`
}

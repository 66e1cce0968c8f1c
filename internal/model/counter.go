package model

import (
	"strconv"
	"strings"
	"time"
)

// Counter is a single service point within a place. Name is unique within
// the owning place.
type Counter struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	PlaceID    int64     `gorm:"uniqueIndex:idx_place_counter_name;not null" json:"placeId"`
	Name       string    `gorm:"uniqueIndex:idx_place_counter_name;size:128;not null" json:"name"`
	OpenTime   string    `gorm:"size:8" json:"openTime"`  // "HH:MM"
	CloseTime  string    `gorm:"size:8" json:"closeTime"` // "HH:MM"
	LunchStart string    `gorm:"size:8" json:"lunchStart,omitempty"`
	LunchEnd   string    `gorm:"size:8" json:"lunchEnd,omitempty"`
	Closed     bool      `gorm:"not null;default:false" json:"closed"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	// Associations
	Categories []ServiceCategory `gorm:"foreignKey:CounterID" json:"categories,omitempty"`
	Place      Place             `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ServiceCategory is one type of transaction a counter handles. AvgMinutes
// is the staff-declared baseline duration; TotalServed is a cumulative
// counter bumped on each completion.
type ServiceCategory struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	CounterID   int64     `gorm:"uniqueIndex:idx_counter_category;not null" json:"counterId"`
	CategoryID  string    `gorm:"uniqueIndex:idx_counter_category;size:64;not null" json:"categoryId"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	AvgMinutes  float64   `gorm:"not null;default:5" json:"avgMinutes"`
	TotalServed int64     `gorm:"not null;default:0" json:"totalServed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DefaultCategoryID is used when a counter declares no categories; such a
// counter behaves as one implicit "general" category.
const DefaultCategoryID = "general"

// DefaultCategoryMinutes is the staff baseline assumed for the implicit
// general category and for categories with no declared baseline.
const DefaultCategoryMinutes = 5

// Category returns the counter's category with the given id, or nil.
func (c *Counter) Category(categoryID string) *ServiceCategory {
	for i := range c.Categories {
		if c.Categories[i].CategoryID == categoryID {
			return &c.Categories[i]
		}
	}
	return nil
}

// DefaultCategoryKey returns the id of the counter's first declared category,
// or DefaultCategoryID when none exist.
func (c *Counter) DefaultCategoryKey() string {
	if len(c.Categories) > 0 {
		return c.Categories[0].CategoryID
	}
	return DefaultCategoryID
}

// StaffBaseline returns the staff-declared average for a category, falling
// back to the 5-minute default when the category is absent or unset.
func (c *Counter) StaffBaseline(categoryID string) float64 {
	if cat := c.Category(categoryID); cat != nil && cat.AvgMinutes > 0 {
		return cat.AvgMinutes
	}
	return DefaultCategoryMinutes
}

// OperatingMinutes returns the counter's daily operating span in minutes:
// (close - open) minus the lunch break when both windows parse. Malformed
// hours yield 0, which callers treat as "unknown span".
func (c *Counter) OperatingMinutes() int {
	openMin, okOpen := parseClock(c.OpenTime)
	closeMin, okClose := parseClock(c.CloseTime)
	if !okOpen || !okClose || closeMin <= openMin {
		return 0
	}
	span := closeMin - openMin
	ls, okLS := parseClock(c.LunchStart)
	le, okLE := parseClock(c.LunchEnd)
	if okLS && okLE && le > ls {
		span -= le - ls
	}
	if span < 0 {
		return 0
	}
	return span
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

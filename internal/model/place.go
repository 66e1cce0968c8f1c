package model

import "time"

// Place represents a physical location (bank branch, clinic, ...) that
// operates one or more service counters.
type Place struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:256;not null" json:"name"`
	Address   string    `gorm:"size:512" json:"address"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Counters []Counter `gorm:"foreignKey:PlaceID" json:"counters,omitempty"`
}

package model

import "time"

// TicketStatus is the closed set of ticket lifecycle states.
type TicketStatus string

const (
	StatusWaiting   TicketStatus = "waiting"
	StatusServing   TicketStatus = "serving"
	StatusCompleted TicketStatus = "completed"
	StatusSkipped   TicketStatus = "skipped"
	StatusCancelled TicketStatus = "cancelled"
	StatusExpired   TicketStatus = "expired"
)

// transitionMap lists the statuses each action may start from. Anything not
// listed here is rejected, so a new status cannot silently enter the
// serving path.
var transitionMap = map[string][]TicketStatus{
	"serve":    {StatusWaiting},
	"complete": {StatusServing},
	"skip":     {StatusServing},
	"cancel":   {StatusWaiting},
	"expire":   {StatusWaiting},
}

// ValidTransition reports whether action may be applied to a ticket
// currently in fromStatus.
func ValidTransition(action string, fromStatus TicketStatus) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}

// Terminal reports whether the status is final.
func (s TicketStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusSkipped, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Ticket is the unit being queued. The autoincrement ID doubles as the
// creation-order tie-break key; Code is the short code shown to the holder.
// A nil ScheduledAt means a walk-in.
type Ticket struct {
	ID               int64        `gorm:"primaryKey" json:"id"`
	Code             string       `gorm:"uniqueIndex;size:16;not null" json:"code"`
	PlaceID          int64        `gorm:"index:idx_ticket_counter;not null" json:"placeId"`
	CounterName      string       `gorm:"index:idx_ticket_counter;size:128;not null" json:"counterName"`
	CategoryID       string       `gorm:"size:64;not null" json:"categoryId"`
	UserID           string       `gorm:"index;size:64;not null" json:"userId"`
	HolderName       string       `gorm:"size:256" json:"holderName"`
	Status           TicketStatus `gorm:"index;size:16;not null" json:"status"`
	CreatedAt        time.Time    `gorm:"not null" json:"createdAt"`
	ScheduledAt      *time.Time   `json:"scheduledAt,omitempty"`
	ServingStartedAt *time.Time   `json:"servingStartedAt,omitempty"`
	CompletedAt      *time.Time   `json:"completedAt,omitempty"`
	ServiceDuration  float64      `gorm:"not null;default:0" json:"serviceDuration"` // minutes, set on completion
}

// WalkIn reports whether the ticket joined without a booked slot.
func (t *Ticket) WalkIn() bool {
	return t.ScheduledAt == nil
}

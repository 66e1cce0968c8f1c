// Package engine implements the queue scheduling and wait-time estimation
// core: service-duration estimation, crowd classification, the virtual-clock
// queue simulation, next-ticket selection, and reservation expiry.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"virtual-queue-backend/config"
	"virtual-queue-backend/internal/model"
	"virtual-queue-backend/internal/store"
)

var (
	// ErrInvalidTransition is returned when an action is applied to a
	// ticket whose current status does not allow it.
	ErrInvalidTransition = errors.New("engine: invalid ticket transition")

	// ErrNotOwner is returned when a user tries to cancel a ticket they do
	// not hold.
	ErrNotOwner = errors.New("engine: ticket belongs to another user")
)

// Engine wires the store to the scheduling policies. All mutating paths on a
// counter are serialized through a per-(place, counter) mutex; the store's
// conditional updates are the backstop against anything bypassing the lock.
type Engine struct {
	store store.Store
	cfg   config.EngineConfig
	locks counterLocks
}

// New creates an engine over the given store with the given tunables.
func New(s store.Store, cfg config.EngineConfig) *Engine {
	return &Engine{
		store: s,
		cfg:   cfg,
		locks: counterLocks{m: make(map[counterKey]*sync.Mutex)},
	}
}

type counterKey struct {
	placeID int64
	counter string
}

// counterLocks hands out one mutex per (place, counter) pair.
type counterLocks struct {
	mu sync.Mutex
	m  map[counterKey]*sync.Mutex
}

func (l *counterLocks) get(placeID int64, counter string) *sync.Mutex {
	key := counterKey{placeID: placeID, counter: counter}
	l.mu.Lock()
	defer l.mu.Unlock()
	if lock, ok := l.m[key]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	l.m[key] = lock
	return lock
}

// JoinInput is the request to create a ticket. A nil ScheduledAt joins as a
// walk-in; a set one books that slot.
type JoinInput struct {
	PlaceID     int64
	CounterName string
	CategoryID  string
	UserID      string
	HolderName  string
	ScheduledAt *time.Time
}

// Join creates a ticket on the counter and returns it together with its
// initial queue metrics.
func (e *Engine) Join(ctx context.Context, in JoinInput) (*model.Ticket, QueueMetrics, error) {
	counter, err := e.store.GetCounter(ctx, in.PlaceID, in.CounterName)
	if err != nil {
		return nil, QueueMetrics{}, err
	}

	categoryID := in.CategoryID
	if categoryID == "" {
		categoryID = counter.DefaultCategoryKey()
	} else if len(counter.Categories) > 0 && counter.Category(categoryID) == nil {
		return nil, QueueMetrics{}, fmt.Errorf("category %q: %w", categoryID, store.ErrNotFound)
	}

	if err := e.SweepExpired(ctx, in.PlaceID, in.CounterName); err != nil {
		return nil, QueueMetrics{}, err
	}

	ticket := &model.Ticket{
		PlaceID:     in.PlaceID,
		CounterName: in.CounterName,
		CategoryID:  categoryID,
		UserID:      in.UserID,
		HolderName:  in.HolderName,
		Status:      model.StatusWaiting,
		ScheduledAt: in.ScheduledAt,
	}
	if err := e.store.CreateTicket(ctx, ticket); err != nil {
		return nil, QueueMetrics{}, err
	}

	metrics, err := e.QueueMetrics(ctx, in.PlaceID, in.CounterName, &ticket.ID)
	if err != nil {
		return nil, QueueMetrics{}, err
	}
	return ticket, metrics, nil
}

// Act applies an operator or holder action (complete, skip, cancel) to a
// ticket. Cancel is restricted to the ticket's owner; complete records the
// measured service duration and bumps the category's served counter.
func (e *Engine) Act(ctx context.Context, code, action, userID string) (*model.Ticket, error) {
	ticket, err := e.store.GetTicketByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !model.ValidTransition(action, ticket.Status) {
		return nil, fmt.Errorf("%w: cannot %s a %s ticket", ErrInvalidTransition, action, ticket.Status)
	}

	lock := e.locks.get(ticket.PlaceID, ticket.CounterName)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	switch action {
	case "complete":
		var duration float64
		if ticket.ServingStartedAt != nil {
			duration = now.Sub(*ticket.ServingStartedAt).Minutes()
		}
		err = e.store.UpdateTicketStatus(ctx, ticket.ID, model.StatusServing, model.StatusCompleted, store.Timestamps{
			CompletedAt:     &now,
			ServiceDuration: duration,
		})
		if err == nil {
			ticket.Status = model.StatusCompleted
			ticket.CompletedAt = &now
			ticket.ServiceDuration = duration
			if counter, cerr := e.store.GetCounter(ctx, ticket.PlaceID, ticket.CounterName); cerr == nil {
				if berr := e.store.BumpCategoryServed(ctx, counter.ID, ticket.CategoryID); berr != nil {
					log.Printf("failed to bump served counter for category %s: %v", ticket.CategoryID, berr)
				}
			}
		}
	case "skip":
		err = e.store.UpdateTicketStatus(ctx, ticket.ID, model.StatusServing, model.StatusSkipped, store.Timestamps{
			CompletedAt: &now,
		})
		if err == nil {
			ticket.Status = model.StatusSkipped
			ticket.CompletedAt = &now
		}
	case "cancel":
		if ticket.UserID != userID {
			return nil, ErrNotOwner
		}
		err = e.store.UpdateTicketStatus(ctx, ticket.ID, model.StatusWaiting, model.StatusCancelled, store.Timestamps{
			CompletedAt: &now,
		})
		if err == nil {
			ticket.Status = model.StatusCancelled
			ticket.CompletedAt = &now
		}
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

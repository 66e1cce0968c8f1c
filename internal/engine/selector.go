package engine

import (
	"context"
	"errors"
	"time"

	"virtual-queue-backend/internal/model"
	"virtual-queue-backend/internal/store"
)

// CallNext picks the ticket a counter operator should serve next and
// promotes it to serving. A due reservation preempts walk-ins; walk-ins
// preempt future reservations; a future reservation is still taken early
// rather than idling the counter. Returns nil when no one is waiting.
//
// Any ticket already serving at the counter is demoted to skipped first, so
// at most one ticket is ever serving per counter. The whole selection is
// retried once if a conditional update loses a race.
func (e *Engine) CallNext(ctx context.Context, placeID int64, counterName string) (*model.Ticket, error) {
	lock := e.locks.get(placeID, counterName)
	lock.Lock()
	defer lock.Unlock()

	if _, err := e.store.GetCounter(ctx, placeID, counterName); err != nil {
		return nil, err
	}
	if err := e.sweepLocked(ctx, placeID, counterName); err != nil {
		return nil, err
	}

	ticket, err := e.callNextOnce(ctx, placeID, counterName)
	if errors.Is(err, store.ErrConflict) {
		ticket, err = e.callNextOnce(ctx, placeID, counterName)
	}
	return ticket, err
}

func (e *Engine) callNextOnce(ctx context.Context, placeID int64, counterName string) (*model.Ticket, error) {
	now := time.Now().UTC()

	serving, err := e.store.FindServingTicket(ctx, placeID, counterName)
	if err != nil {
		return nil, err
	}
	if serving != nil {
		// Close out the abandoned session before promoting anyone.
		err := e.store.UpdateTicketStatus(ctx, serving.ID, model.StatusServing, model.StatusSkipped, store.Timestamps{
			CompletedAt: &now,
		})
		if err != nil {
			return nil, err
		}
	}

	waiting, err := e.store.FindWaitingTickets(ctx, placeID, counterName)
	if err != nil {
		return nil, err
	}
	walkIns, slotted := partitionWaiting(waiting)

	var chosen *model.Ticket
	dueBy := now.Add(time.Duration(e.cfg.DueSlotWindowMinutes) * time.Minute)
	switch {
	case len(slotted) > 0 && !slotted[0].ticket.ScheduledAt.After(dueBy):
		// A reservation due within the window always preempts.
		chosen = slotted[0].ticket
	case len(walkIns) > 0:
		chosen = walkIns[0].ticket
	case len(slotted) > 0:
		// Only future slots remain; take the earliest rather than idle.
		chosen = slotted[0].ticket
	default:
		return nil, nil
	}

	err = e.store.UpdateTicketStatus(ctx, chosen.ID, model.StatusWaiting, model.StatusServing, store.Timestamps{
		ServingStartedAt: &now,
	})
	if err != nil {
		return nil, err
	}
	chosen.Status = model.StatusServing
	chosen.ServingStartedAt = &now
	return chosen, nil
}

package engine

import (
	"context"
	"errors"
	"time"

	"virtual-queue-backend/internal/model"
	"virtual-queue-backend/internal/store"
)

// SweepExpired transitions every waiting reservation more than the grace
// period past its slot to expired. It runs before every queue read or
// mutation so stale reservations never occupy a queue position. The sweep
// is idempotent; a second pass finds nothing left to expire.
func (e *Engine) SweepExpired(ctx context.Context, placeID int64, counterName string) error {
	lock := e.locks.get(placeID, counterName)
	lock.Lock()
	defer lock.Unlock()
	return e.sweepLocked(ctx, placeID, counterName)
}

// sweepLocked is SweepExpired without the per-counter lock, for callers that
// already hold it.
func (e *Engine) sweepLocked(ctx context.Context, placeID int64, counterName string) error {
	waiting, err := e.store.FindWaitingTickets(ctx, placeID, counterName)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	cutoff := now.Add(-time.Duration(e.cfg.ExpiryGraceMinutes) * time.Minute)
	for i := range waiting {
		t := &waiting[i]
		if t.ScheduledAt == nil || !t.ScheduledAt.Before(cutoff) {
			continue
		}
		err := e.store.UpdateTicketStatus(ctx, t.ID, model.StatusWaiting, model.StatusExpired, store.Timestamps{
			CompletedAt: &now,
		})
		if err != nil && !errors.Is(err, store.ErrConflict) {
			return err
		}
		// A conflict means another call already moved the ticket on; the
		// sweep's outcome is the same either way.
	}
	return nil
}

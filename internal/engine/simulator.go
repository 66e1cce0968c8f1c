package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"virtual-queue-backend/internal/model"
	"virtual-queue-backend/internal/store"
)

// QueueMetrics is the simulator's answer for one ticket (or for a
// hypothetical new walk-in when no target is given).
type QueueMetrics struct {
	PeopleAhead   int        `json:"peopleAhead"`
	EstimatedWait int        `json:"estimatedWait"` // minutes
	CrowdLevel    CrowdLevel `json:"crowdLevel"`
	PaceMinutes   int        `json:"pace"`
	NowServing    string     `json:"nowServing"`
}

// candidate is one entry in the simulated queue: either a real waiting
// ticket or the synthetic "new walk-in arriving now" placeholder. The
// placeholder never touches the store.
type candidate struct {
	ticket       *model.Ticket
	categoryID   string
	hypothetical bool
}

func (c candidate) isTarget(targetID *int64) bool {
	if targetID == nil {
		return c.hypothetical
	}
	return c.ticket != nil && c.ticket.ID == *targetID
}

// QueueMetrics walks the counter's waiting tickets with a virtual clock and
// reports how many people are ahead of the target and the projected wait.
// A nil targetTicketID simulates an immediate new walk-in. Stale
// reservations are expired before the queue is read.
func (e *Engine) QueueMetrics(ctx context.Context, placeID int64, counterName string, targetTicketID *int64) (QueueMetrics, error) {
	if err := e.SweepExpired(ctx, placeID, counterName); err != nil {
		return QueueMetrics{}, err
	}

	counter, err := e.store.GetCounter(ctx, placeID, counterName)
	if err != nil {
		return QueueMetrics{}, err
	}
	waiting, err := e.store.FindWaitingTickets(ctx, placeID, counterName)
	if err != nil {
		return QueueMetrics{}, err
	}
	serving, err := e.store.FindServingTicket(ctx, placeID, counterName)
	if err != nil {
		return QueueMetrics{}, err
	}

	// Category paces are memoized for the duration of one simulation run.
	paceMemo := make(map[string]int)
	paceFor := func(categoryID string) int {
		if pace, ok := paceMemo[categoryID]; ok {
			return pace
		}
		pace := e.Estimate(ctx, counter, categoryID)
		paceMemo[categoryID] = pace
		return pace
	}

	now := time.Now().UTC()
	virtual := now
	peopleAhead := 0

	nowServing := "None"
	if serving != nil {
		nowServing = serving.Code
		if targetTicketID != nil && serving.ID == *targetTicketID {
			// The target is already at the counter.
			metrics := e.classify(activeCount(waiting, serving), counter.OperatingMinutes(), paceFor(counter.DefaultCategoryKey()))
			return QueueMetrics{
				PeopleAhead:   0,
				EstimatedWait: 0,
				CrowdLevel:    metrics.Level,
				PaceMinutes:   metrics.PaceMinutes,
				NowServing:    nowServing,
			}, nil
		}
		// The in-progress transaction occupies the counter for its
		// remaining estimated time, never less than a minute.
		elapsed := 0.0
		if serving.ServingStartedAt != nil {
			elapsed = now.Sub(*serving.ServingStartedAt).Minutes()
		}
		remaining := float64(paceFor(serving.CategoryID)) - elapsed
		if remaining < 1 {
			remaining = 1
		}
		virtual = virtual.Add(minutesToDuration(remaining))
		peopleAhead = 1
	}

	walkIns, slotted := partitionWaiting(waiting)
	if targetTicketID == nil {
		walkIns = append(walkIns, candidate{
			categoryID:   counter.DefaultCategoryKey(),
			hypothetical: true,
		})
	}

	found := false
	wi, si := 0, 0
	for wi < len(walkIns) || si < len(slotted) {
		var pick candidate
		switch {
		case si < len(slotted) && !slotted[si].ticket.ScheduledAt.After(virtual):
			// The earliest remaining slot is due at the virtual clock.
			pick = slotted[si]
			si++
		case wi < len(walkIns):
			pick = walkIns[wi]
			wi++
		default:
			// Only future slots remain: the counter idles until the next
			// slot opens.
			next := slotted[si]
			if next.ticket.ScheduledAt.After(virtual) {
				virtual = *next.ticket.ScheduledAt
			}
			pick = next
			si++
		}

		if pick.isTarget(targetTicketID) {
			found = true
			break
		}
		peopleAhead++
		virtual = virtual.Add(time.Duration(paceFor(pick.categoryID)) * time.Minute)
	}
	if !found {
		return QueueMetrics{}, fmt.Errorf("target ticket %d: %w", derefID(targetTicketID), store.ErrNotFound)
	}

	wait := int(math.Round(virtual.Sub(now).Minutes()))
	if wait < 0 {
		wait = 0
	}

	crowd := e.classify(activeCount(waiting, serving), counter.OperatingMinutes(), paceFor(counter.DefaultCategoryKey()))
	return QueueMetrics{
		PeopleAhead:   peopleAhead,
		EstimatedWait: wait,
		CrowdLevel:    crowd.Level,
		PaceMinutes:   crowd.PaceMinutes,
		NowServing:    nowServing,
	}, nil
}

// partitionWaiting splits waiting tickets into walk-ins (creation order) and
// slotted tickets (scheduled order), ties broken by id in both lists. The
// input is already in (created_at, id) order from the store.
func partitionWaiting(waiting []model.Ticket) (walkIns, slotted []candidate) {
	for i := range waiting {
		t := &waiting[i]
		c := candidate{ticket: t, categoryID: t.CategoryID}
		if t.WalkIn() {
			walkIns = append(walkIns, c)
		} else {
			slotted = append(slotted, c)
		}
	}
	sort.SliceStable(slotted, func(i, j int) bool {
		a, b := slotted[i].ticket, slotted[j].ticket
		if a.ScheduledAt.Equal(*b.ScheduledAt) {
			return a.ID < b.ID
		}
		return a.ScheduledAt.Before(*b.ScheduledAt)
	})
	return walkIns, slotted
}

func activeCount(waiting []model.Ticket, serving *model.Ticket) int {
	n := len(waiting)
	if serving != nil {
		n++
	}
	return n
}

func minutesToDuration(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

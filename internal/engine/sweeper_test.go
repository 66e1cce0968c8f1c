package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual-queue-backend/internal/model"
)

func TestSweepExpiredMarksOverdueReservations(t *testing.T) {
	eng, appStore, testDB := newTestEngine(t)
	counter := seedCounter(t, testDB, model.Counter{},
		model.ServiceCategory{CategoryID: "deposit", Name: "Deposits", AvgMinutes: 5})

	overdue := joinSlotted(t, appStore, counter, "deposit", "u1", time.Now().UTC().Add(-45*time.Minute))
	recent := joinSlotted(t, appStore, counter, "deposit", "u2", time.Now().UTC().Add(-10*time.Minute))
	walkIn := joinWalkIn(t, appStore, counter, "deposit", "u3")

	require.NoError(t, eng.SweepExpired(context.Background(), counter.PlaceID, counter.Name))

	reloaded, err := appStore.GetTicket(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, reloaded.Status)
	assert.NotNil(t, reloaded.CompletedAt)

	// Within the grace window and walk-ins are untouched.
	for _, id := range []int64{recent.ID, walkIn.ID} {
		ticket, err := appStore.GetTicket(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusWaiting, ticket.Status)
	}
}

func TestSweepExpiredIdempotent(t *testing.T) {
	eng, appStore, testDB := newTestEngine(t)
	counter := seedCounter(t, testDB, model.Counter{},
		model.ServiceCategory{CategoryID: "deposit", Name: "Deposits", AvgMinutes: 5})

	joinSlotted(t, appStore, counter, "deposit", "u1", time.Now().UTC().Add(-40*time.Minute))
	joinSlotted(t, appStore, counter, "deposit", "u2", time.Now().UTC().Add(-90*time.Minute))

	require.NoError(t, eng.SweepExpired(context.Background(), counter.PlaceID, counter.Name))

	var expiredAfterFirst []model.Ticket
	require.NoError(t, testDB.Where("status = ?", model.StatusExpired).Order("id").Find(&expiredAfterFirst).Error)
	assert.Len(t, expiredAfterFirst, 2)

	require.NoError(t, eng.SweepExpired(context.Background(), counter.PlaceID, counter.Name))

	var expiredAfterSecond []model.Ticket
	require.NoError(t, testDB.Where("status = ?", model.StatusExpired).Order("id").Find(&expiredAfterSecond).Error)
	require.Len(t, expiredAfterSecond, 2)
	for i := range expiredAfterFirst {
		// The second sweep is a no-op: same tickets, same timestamps.
		assert.Equal(t, expiredAfterFirst[i].ID, expiredAfterSecond[i].ID)
		assert.Equal(t, expiredAfterFirst[i].CompletedAt.Unix(), expiredAfterSecond[i].CompletedAt.Unix())
	}
}

func TestSweepExpiredNothingToDo(t *testing.T) {
	eng, _, testDB := newTestEngine(t)
	counter := seedCounter(t, testDB, model.Counter{},
		model.ServiceCategory{CategoryID: "deposit", Name: "Deposits", AvgMinutes: 5})

	assert.NoError(t, eng.SweepExpired(context.Background(), counter.PlaceID, counter.Name))
}

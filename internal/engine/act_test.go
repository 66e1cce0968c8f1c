package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual-queue-backend/internal/model"
	"virtual-queue-backend/internal/store"
)

func TestActCompleteRecordsDuration(t *testing.T) {
	eng, appStore, testDB := newTestEngine(t)
	counter := seedCounter(t, testDB, model.Counter{},
		model.ServiceCategory{CategoryID: "deposit", Name: "Deposits", AvgMinutes: 5})

	ticket := joinWalkIn(t, appStore, counter, "deposit", "u1")
	started := time.Now().UTC().Add(-6 * time.Minute)
	require.NoError(t, appStore.UpdateTicketStatus(context.Background(), ticket.ID,
		model.StatusWaiting, model.StatusServing, store.Timestamps{ServingStartedAt: &started}))

	got, err := eng.Act(context.Background(), ticket.Code, "complete", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.InDelta(t, 6, got.ServiceDuration, 0.1)
	assert.NotNil(t, got.CompletedAt)

	// The category's cumulative served count moved.
	var cat model.ServiceCategory
	require.NoError(t, testDB.Where("counter_id = ? AND category_id = ?", counter.ID, "deposit").First(&cat).Error)
	assert.Equal(t, int64(1), cat.TotalServed)
}

func TestActCancelOnlyByOwner(t *testing.T) {
	eng, appStore, testDB := newTestEngine(t)
	counter := seedCounter(t, testDB, model.Counter{},
		model.ServiceCategory{CategoryID: "deposit", Name: "Deposits", AvgMinutes: 5})

	ticket := joinWalkIn(t, appStore, counter, "deposit", "u1")

	_, err := eng.Act(context.Background(), ticket.Code, "cancel", "someone-else")
	assert.ErrorIs(t, err, ErrNotOwner)

	got, err := eng.Act(context.Background(), ticket.Code, "cancel", "u1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
}

func TestActRejectsInvalidTransitions(t *testing.T) {
	eng, appStore, testDB := newTestEngine(t)
	counter := seedCounter(t, testDB, model.Counter{},
		model.ServiceCategory{CategoryID: "deposit", Name: "Deposits", AvgMinutes: 5})

	waiting := joinWalkIn(t, appStore, counter, "deposit", "u1")

	// A waiting ticket cannot be completed or skipped; only the selector
	// moves tickets into serving.
	_, err := eng.Act(context.Background(), waiting.Code, "complete", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = eng.Act(context.Background(), waiting.Code, "skip", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Terminal statuses are never revisited.
	got, err := eng.Act(context.Background(), waiting.Code, "cancel", "u1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	_, err = eng.Act(context.Background(), waiting.Code, "cancel", "u1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestActUnknownTicket(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	_, err := eng.Act(context.Background(), "NOPE1234", "complete", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

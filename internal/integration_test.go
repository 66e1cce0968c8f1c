package internal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"virtual-queue-backend/config"
	"virtual-queue-backend/internal/db"
	"virtual-queue-backend/internal/engine"
	"virtual-queue-backend/internal/model"
	"virtual-queue-backend/internal/store"
)

// TestTicketLifecycle walks one counter through a full day-in-the-life:
// customers join, get called, get served, and the recorded durations start
// feeding the wait-time estimates.
func TestTicketLifecycle(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	cfg := config.Config{}
	cfg.ApplyDefaults()

	appStore := store.NewGormStore(testDB)
	eng := engine.New(appStore, cfg.Engine)
	ctx := context.Background()

	// Seed one branch with one deposit counter.
	place := model.Place{Name: "Main Branch"}
	require.NoError(t, testDB.Create(&place).Error)
	counter := model.Counter{PlaceID: place.ID, Name: "A", OpenTime: "09:00", CloseTime: "17:00"}
	require.NoError(t, testDB.Create(&counter).Error)
	category := model.ServiceCategory{CounterID: counter.ID, CategoryID: "deposit", Name: "Deposits", AvgMinutes: 5}
	require.NoError(t, testDB.Create(&category).Error)

	var tickets []*model.Ticket
	t.Run("Three customers join", func(t *testing.T) {
		for i, user := range []string{"u1", "u2", "u3"} {
			ticket, metrics, err := eng.Join(ctx, engine.JoinInput{
				PlaceID:     place.ID,
				CounterName: counter.Name,
				CategoryID:  "deposit",
				UserID:      user,
			})
			require.NoError(t, err)
			assert.Equal(t, i, metrics.PeopleAhead)
			assert.Equal(t, i*5, metrics.EstimatedWait)
			tickets = append(tickets, ticket)
		}
	})

	t.Run("Operator serves the queue in order", func(t *testing.T) {
		for _, expected := range tickets {
			called, err := eng.CallNext(ctx, place.ID, counter.Name)
			require.NoError(t, err)
			require.NotNil(t, called)
			assert.Equal(t, expected.ID, called.ID)

			// Backdate the serving start so the completion records a
			// believable four-minute transaction.
			started := time.Now().UTC().Add(-4 * time.Minute)
			require.NoError(t, testDB.Model(&model.Ticket{}).
				Where("id = ?", called.ID).
				Update("serving_started_at", started).Error)

			done, err := eng.Act(ctx, called.Code, "complete", "")
			require.NoError(t, err)
			assert.Equal(t, model.StatusCompleted, done.Status)
			assert.InDelta(t, 4, done.ServiceDuration, 0.1)
		}

		metrics, err := eng.QueueMetrics(ctx, place.ID, counter.Name, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, metrics.PeopleAhead)
		assert.Equal(t, "None", metrics.NowServing)
	})

	t.Run("History sharpens the estimate", func(t *testing.T) {
		// Three four-minute completions against a five-minute baseline:
		// round(0.3*5 + 0.7*4) = 4.
		reloaded, err := appStore.GetCounter(ctx, place.ID, counter.Name)
		require.NoError(t, err)
		assert.Equal(t, 4, eng.Estimate(ctx, reloaded, "deposit"))

		assert.Equal(t, int64(3), reloadCategory(t, testDB, category.ID).TotalServed)
	})

	t.Run("Stale reservation expires and frees the queue", func(t *testing.T) {
		staleAt := time.Now().UTC().Add(-45 * time.Minute)
		stale := &model.Ticket{
			PlaceID:     place.ID,
			CounterName: counter.Name,
			CategoryID:  "deposit",
			UserID:      "u-stale",
			ScheduledAt: &staleAt,
		}
		require.NoError(t, appStore.CreateTicket(ctx, stale))

		metrics, err := eng.QueueMetrics(ctx, place.ID, counter.Name, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, metrics.PeopleAhead)

		reloaded, err := appStore.GetTicket(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusExpired, reloaded.Status)
	})
}

func reloadCategory(t *testing.T, testDB *gorm.DB, id int64) model.ServiceCategory {
	t.Helper()
	var cat model.ServiceCategory
	require.NoError(t, testDB.First(&cat, id).Error)
	return cat
}

package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"virtual-queue-backend/config"
	"virtual-queue-backend/internal/db"
	"virtual-queue-backend/internal/model"
	"virtual-queue-backend/internal/store"
)

// newTestEngine spins up an in-memory SQLite database, migrates the schema,
// and returns an engine over it plus the raw handle for seeding.
func newTestEngine(t *testing.T) (*Engine, store.Store, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", sanitizeDBName(t.Name()))
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(testDB))

	cfg := config.Config{}
	cfg.ApplyDefaults()

	appStore := store.NewGormStore(testDB)
	return New(appStore, cfg.Engine), appStore, testDB
}

func sanitizeDBName(name string) string {
	return strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(name)
}

// seedCounter creates a place with one counter and the given categories.
func seedCounter(t *testing.T, testDB *gorm.DB, counter model.Counter, categories ...model.ServiceCategory) model.Counter {
	t.Helper()

	place := model.Place{Name: "Branch " + t.Name()}
	require.NoError(t, testDB.Create(&place).Error)

	counter.PlaceID = place.ID
	if counter.Name == "" {
		counter.Name = "A"
	}
	require.NoError(t, testDB.Create(&counter).Error)

	for i := range categories {
		categories[i].CounterID = counter.ID
		require.NoError(t, testDB.Create(&categories[i]).Error)
	}
	counter.Categories = categories
	return counter
}

// seedCompleted inserts a completed ticket with the given recorded duration.
func seedCompleted(t *testing.T, testDB *gorm.DB, counter model.Counter, categoryID string, duration float64, completedAt time.Time) {
	t.Helper()

	started := completedAt.Add(-time.Duration(duration * float64(time.Minute)))
	ticket := model.Ticket{
		Code:             newCode(t),
		PlaceID:          counter.PlaceID,
		CounterName:      counter.Name,
		CategoryID:       categoryID,
		UserID:           "u-history",
		Status:           model.StatusCompleted,
		CreatedAt:        started.Add(-time.Minute),
		ServingStartedAt: &started,
		CompletedAt:      &completedAt,
		ServiceDuration:  duration,
	}
	require.NoError(t, testDB.Create(&ticket).Error)
}

var codeSeq int

func newCode(t *testing.T) string {
	t.Helper()
	codeSeq++
	return fmt.Sprintf("T%07d", codeSeq)
}

// joinWalkIn creates a waiting walk-in ticket directly through the store.
func joinWalkIn(t *testing.T, s store.Store, counter model.Counter, categoryID, userID string) *model.Ticket {
	t.Helper()
	ticket := &model.Ticket{
		PlaceID:     counter.PlaceID,
		CounterName: counter.Name,
		CategoryID:  categoryID,
		UserID:      userID,
	}
	require.NoError(t, s.CreateTicket(context.Background(), ticket))
	return ticket
}

// joinSlotted creates a waiting ticket booked for the given time.
func joinSlotted(t *testing.T, s store.Store, counter model.Counter, categoryID, userID string, at time.Time) *model.Ticket {
	t.Helper()
	ticket := &model.Ticket{
		PlaceID:     counter.PlaceID,
		CounterName: counter.Name,
		CategoryID:  categoryID,
		UserID:      userID,
		ScheduledAt: &at,
	}
	require.NoError(t, s.CreateTicket(context.Background(), ticket))
	return ticket
}

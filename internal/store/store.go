package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"virtual-queue-backend/internal/model"
)

// Store defines the interface for all database operations the queue engine
// and handlers need.
type Store interface {
	// DB exposes the underlying handle for handler-local reads.
	DB() *gorm.DB

	CreateTicket(ctx context.Context, t *model.Ticket) error
	GetTicket(ctx context.Context, ticketID int64) (*model.Ticket, error)
	GetTicketByCode(ctx context.Context, code string) (*model.Ticket, error)
	FindWaitingTickets(ctx context.Context, placeID int64, counterName string) ([]model.Ticket, error)
	FindServingTicket(ctx context.Context, placeID int64, counterName string) (*model.Ticket, error)
	FindRecentCompleted(ctx context.Context, placeID int64, counterName, categoryID string, limit int) ([]model.Ticket, error)
	CountActiveTickets(ctx context.Context, placeID int64, counterName string) (int64, error)
	ListUserTickets(ctx context.Context, userID string, activeOnly bool) ([]model.Ticket, error)

	// UpdateTicketStatus performs a conditional status transition: the row
	// is updated only if its current status still equals from. A lost race
	// is reported as ErrConflict.
	UpdateTicketStatus(ctx context.Context, ticketID int64, from, to model.TicketStatus, ts Timestamps) error

	GetPlace(ctx context.Context, placeID int64) (*model.Place, error)
	GetCounter(ctx context.Context, placeID int64, counterName string) (*model.Counter, error)
	ListPlaces(ctx context.Context) ([]PlaceSummary, error)
	BumpCategoryServed(ctx context.Context, counterID int64, categoryID string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// CreateTicket persists a new ticket. The autoincrement primary key gives
// tickets a strictly increasing creation order even for same-instant joins.
func (s *gormStore) CreateTicket(ctx context.Context, t *model.Ticket) error {
	if t.Code == "" {
		t.Code = newTicketCode()
	}
	if t.Status == "" {
		t.Status = model.StatusWaiting
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

func (s *gormStore) GetTicket(ctx context.Context, ticketID int64) (*model.Ticket, error) {
	var t model.Ticket
	err := s.db.WithContext(ctx).First(&t, ticketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *gormStore) GetTicketByCode(ctx context.Context, code string) (*model.Ticket, error) {
	var t model.Ticket
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindWaitingTickets returns the counter's waiting tickets in creation
// order, ties broken by id, so the simulator sees a total ordering.
func (s *gormStore) FindWaitingTickets(ctx context.Context, placeID int64, counterName string) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := s.db.WithContext(ctx).
		Where("place_id = ? AND counter_name = ? AND status = ?", placeID, counterName, model.StatusWaiting).
		Order("created_at ASC, id ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *gormStore) FindServingTicket(ctx context.Context, placeID int64, counterName string) (*model.Ticket, error) {
	var t model.Ticket
	err := s.db.WithContext(ctx).
		Where("place_id = ? AND counter_name = ? AND status = ?", placeID, counterName, model.StatusServing).
		Order("id ASC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindRecentCompleted returns the most recent completed tickets with a
// positive recorded duration for a (counter, category), newest first.
func (s *gormStore) FindRecentCompleted(ctx context.Context, placeID int64, counterName, categoryID string, limit int) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := s.db.WithContext(ctx).
		Where("place_id = ? AND counter_name = ? AND category_id = ? AND status = ? AND service_duration > 0",
			placeID, counterName, categoryID, model.StatusCompleted).
		Order("completed_at DESC").
		Limit(limit).
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *gormStore) CountActiveTickets(ctx context.Context, placeID int64, counterName string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("place_id = ? AND counter_name = ? AND status IN ?",
			placeID, counterName, []model.TicketStatus{model.StatusWaiting, model.StatusServing}).
		Count(&count).Error
	return count, err
}

func (s *gormStore) ListUserTickets(ctx context.Context, userID string, activeOnly bool) ([]model.Ticket, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("status IN ?", []model.TicketStatus{model.StatusWaiting, model.StatusServing})
	}
	var tickets []model.Ticket
	if err := q.Order("created_at DESC").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// UpdateTicketStatus applies a conditional single-row UPDATE. RowsAffected
// of zero means another caller transitioned the ticket first (or it never
// existed); both surface as ErrConflict and the caller decides whether to
// retry.
func (s *gormStore) UpdateTicketStatus(ctx context.Context, ticketID int64, from, to model.TicketStatus, ts Timestamps) error {
	updates := map[string]any{"status": to}
	if ts.ServingStartedAt != nil {
		updates["serving_started_at"] = *ts.ServingStartedAt
	}
	if ts.CompletedAt != nil {
		updates["completed_at"] = *ts.CompletedAt
	}
	if ts.ServiceDuration > 0 {
		updates["service_duration"] = ts.ServiceDuration
	}

	res := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ? AND status = ?", ticketID, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update ticket %d: %w", ticketID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *gormStore) GetPlace(ctx context.Context, placeID int64) (*model.Place, error) {
	var place model.Place
	err := s.db.WithContext(ctx).Preload("Counters.Categories").First(&place, placeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &place, nil
}

func (s *gormStore) GetCounter(ctx context.Context, placeID int64, counterName string) (*model.Counter, error) {
	var counter model.Counter
	err := s.db.WithContext(ctx).Preload("Categories").
		Where("place_id = ? AND name = ?", placeID, counterName).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

// ListPlaces returns all places with their counter counts in one aggregate
// query pass.
func (s *gormStore) ListPlaces(ctx context.Context) ([]PlaceSummary, error) {
	var places []model.Place
	if err := s.db.WithContext(ctx).Find(&places).Error; err != nil {
		return nil, err
	}

	type aggRow struct {
		PlaceID       int64
		TotalCounters int64
	}
	var aggs []aggRow
	if err := s.db.WithContext(ctx).
		Model(&model.Counter{}).
		Select("place_id as place_id, COUNT(*) as total_counters").
		Group("place_id").
		Scan(&aggs).Error; err != nil {
		return nil, err
	}

	aggMap := make(map[int64]aggRow, len(aggs))
	for _, a := range aggs {
		aggMap[a.PlaceID] = a
	}

	summaries := make([]PlaceSummary, 0, len(places))
	for _, p := range places {
		summaries = append(summaries, PlaceSummary{
			ID:            p.ID,
			Name:          p.Name,
			Address:       p.Address,
			TotalCounters: aggMap[p.ID].TotalCounters,
		})
	}
	return summaries, nil
}

// BumpCategoryServed increments the cumulative served counter for a
// category; absent categories (the implicit general one) are a no-op.
func (s *gormStore) BumpCategoryServed(ctx context.Context, counterID int64, categoryID string) error {
	return s.db.WithContext(ctx).Model(&model.ServiceCategory{}).
		Where("counter_id = ? AND category_id = ?", counterID, categoryID).
		UpdateColumn("total_served", gorm.Expr("total_served + 1")).Error
}

// newTicketCode derives a short display code from a fresh UUID.
func newTicketCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}

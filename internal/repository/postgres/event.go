package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/model"
)

type eventRepository struct {
	BaseRepository
}

func NewEventRepository(base BaseRepository) *eventRepository {
	return &eventRepository{BaseRepository: base}
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	query := `
		INSERT INTO events (id, business_id, title, description, scheduled_at, target_rules, recurrence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.BusinessID, event.Title, event.Description,
		event.ScheduledAt, event.TargetRules, event.Recurrence, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *eventRepository) GetDueEvents(ctx context.Context, before time.Time) ([]*model.Event, error) {
	query := `
		SELECT id, business_id, title, description, scheduled_at, target_rules, recurrence, created_at
		FROM events
		WHERE scheduled_at <= $1
		ORDER BY scheduled_at
	`
	var events []*model.Event
	if err := r.db.SelectContext(ctx, &events, query, before); err != nil {
		return nil, fmt.Errorf("failed to get due events: %w", err)
	}
	return events, nil
}

func (r *eventRepository) GetRecurringEvents(ctx context.Context, before time.Time) ([]*model.Event, error) {
	query := `
		SELECT id, business_id, title, description, scheduled_at, target_rules, recurrence, created_at
		FROM events
		WHERE scheduled_at <= $1 AND recurrence IS NOT NULL
		ORDER BY scheduled_at
	`
	var events []*model.Event
	if err := r.db.SelectContext(ctx, &events, query, before); err != nil {
		return nil, fmt.Errorf("failed to get recurring events: %w", err)
	}
	return events, nil
}

func (r *eventRepository) GetByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.Event, error) {
	query := `
		SELECT id, business_id, title, description, scheduled_at, target_rules, recurrence, created_at
		FROM events
		WHERE business_id = $1
		ORDER BY scheduled_at DESC
	`
	var events []*model.Event
	if err := r.db.SelectContext(ctx, &events, query, businessID); err != nil {
		return nil, fmt.Errorf("failed to get events for business %s: %w", businessID, err)
	}
	return events, nil
}

func (r *eventRepository) GetUpcomingByBusiness(ctx context.Context, businessID uuid.UUID, after time.Time, limit int) ([]*model.Event, error) {
	query := `
		SELECT id, business_id, title, description, scheduled_at, target_rules, recurrence, created_at
		FROM events
		WHERE business_id = $1 AND scheduled_at >= $2
		ORDER BY scheduled_at
		LIMIT $3
	`
	var events []*model.Event
	if err := r.db.SelectContext(ctx, &events, query, businessID, after, limit); err != nil {
		return nil, fmt.Errorf("failed to get upcoming events for business %s: %w", businessID, err)
	}
	return events, nil
}

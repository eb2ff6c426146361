package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/model"
	"github.com/jwalitptl/event-notify/internal/repository"
)

type businessRepository struct {
	BaseRepository
}

func NewBusinessRepository(base BaseRepository) *businessRepository {
	return &businessRepository{BaseRepository: base}
}

func (r *businessRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Business, error) {
	query := `
		SELECT id, name, contact_email, max_requests_per_minute, max_requests_per_hour
		FROM businesses
		WHERE id = $1
	`
	var business model.Business
	err := r.db.GetContext(ctx, &business, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business %s: %w", id, err)
	}
	return &business, nil
}

func (r *businessRepository) List(ctx context.Context) ([]*model.Business, error) {
	query := `
		SELECT id, name, contact_email, max_requests_per_minute, max_requests_per_hour
		FROM businesses
		ORDER BY name
	`
	var businesses []*model.Business
	if err := r.db.SelectContext(ctx, &businesses, query); err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	return businesses, nil
}

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

type webhookRepository struct {
	BaseRepository
}

func NewWebhookRepository(base BaseRepository) *webhookRepository {
	return &webhookRepository{BaseRepository: base}
}

func (r *webhookRepository) Create(ctx context.Context, webhook *model.Webhook) error {
	query := `
		INSERT INTO webhooks (id, business_id, url, secret_key, event_type)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		webhook.ID, webhook.BusinessID, webhook.URL, webhook.SecretKey, webhook.EventType)
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	return nil
}

func (r *webhookRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Webhook, error) {
	query := `
		SELECT id, business_id, url, secret_key, event_type
		FROM webhooks
		WHERE id = $1
	`
	var webhook model.Webhook
	err := r.db.GetContext(ctx, &webhook, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook %s: %w", id, err)
	}
	return &webhook, nil
}

func (r *webhookRepository) GetByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.Webhook, error) {
	query := `
		SELECT id, business_id, url, secret_key, event_type
		FROM webhooks
		WHERE business_id = $1
	`
	var webhooks []*model.Webhook
	if err := r.db.SelectContext(ctx, &webhooks, query, businessID); err != nil {
		return nil, fmt.Errorf("failed to get webhooks for business %s: %w", businessID, err)
	}
	return webhooks, nil
}

func (r *webhookRepository) UpdateSecret(ctx context.Context, id uuid.UUID, secret string) error {
	query := `UPDATE webhooks SET secret_key = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, secret)
	if err != nil {
		return fmt.Errorf("failed to rotate webhook secret: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/event-notify/internal/model"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) *userRepository {
	return &userRepository{BaseRepository: base}
}

func (r *userRepository) GetByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.User, error) {
	query := `
		SELECT id, business_id, name, phone_number, joined_at
		FROM users
		WHERE business_id = $1
	`
	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query, businessID); err != nil {
		return nil, fmt.Errorf("failed to get users for business %s: %w", businessID, err)
	}
	return users, nil
}

func (r *userRepository) GetJoinedAfter(ctx context.Context, businessID uuid.UUID, after time.Time) ([]*model.User, error) {
	query := `
		SELECT id, business_id, name, phone_number, joined_at
		FROM users
		WHERE business_id = $1 AND joined_at >= $2
	`
	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query, businessID, after); err != nil {
		return nil, fmt.Errorf("failed to get recently joined users: %w", err)
	}
	return users, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, business_id, name, phone_number, joined_at
		FROM users
		WHERE id IN (?)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}
	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get users by ids: %w", err)
	}
	return users, nil
}

func (r *userRepository) ListGroups(ctx context.Context, businessID uuid.UUID) ([]*model.UserGroup, error) {
	query := `
		SELECT id, business_id, name
		FROM user_groups
		WHERE business_id = $1
		ORDER BY name
	`
	var groups []*model.UserGroup
	if err := r.db.SelectContext(ctx, &groups, query, businessID); err != nil {
		return nil, fmt.Errorf("failed to list groups for business %s: %w", businessID, err)
	}
	return groups, nil
}

func (r *userRepository) GetByGroupIDs(ctx context.Context, groupIDs []uuid.UUID) ([]*model.User, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT DISTINCT u.id, u.business_id, u.name, u.phone_number, u.joined_at
		FROM users u
		JOIN user_group_members m ON m.user_id = u.id
		WHERE m.group_id IN (?)
	`, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build group query: %w", err)
	}
	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get users by groups: %w", err)
	}
	return users, nil
}

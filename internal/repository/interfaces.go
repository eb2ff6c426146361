package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	// GetDueEvents returns events whose scheduled time is at or before the
	// given instant.
	GetDueEvents(ctx context.Context, before time.Time) ([]*model.Event, error)
	// GetRecurringEvents returns due events that carry a recurrence kind.
	GetRecurringEvents(ctx context.Context, before time.Time) ([]*model.Event, error)
	GetByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.Event, error)
	GetUpcomingByBusiness(ctx context.Context, businessID uuid.UUID, after time.Time, limit int) ([]*model.Event, error)
}

type UserRepository interface {
	GetByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.User, error)
	GetJoinedAfter(ctx context.Context, businessID uuid.UUID, after time.Time) ([]*model.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.User, error)
	GetByGroupIDs(ctx context.Context, groupIDs []uuid.UUID) ([]*model.User, error)
	// ListGroups returns a tenant's subscriber groups, the ids targeting
	// rules filter on.
	ListGroups(ctx context.Context, businessID uuid.UUID) ([]*model.UserGroup, error)
}

type WebhookRepository interface {
	Create(ctx context.Context, webhook *model.Webhook) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Webhook, error)
	GetByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.Webhook, error)
	UpdateSecret(ctx context.Context, id uuid.UUID, secret string) error
}

type AnalyticsRepository interface {
	Create(ctx context.Context, record *model.EventAnalytics) error
	GetByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.EventAnalytics, error)
	// GetEngagementScores returns the historical per-user success rate for a
	// tenant, used to rank resolved audiences.
	GetEngagementScores(ctx context.Context, businessID uuid.UUID) (map[uuid.UUID]float64, error)
}

type BusinessRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Business, error)
	List(ctx context.Context) ([]*model.Business, error)
}

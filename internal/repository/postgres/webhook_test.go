package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/event-notify/internal/repository"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestWebhookRepositoryGetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWebhookRepository(NewBaseRepository(db))

	id := uuid.New()
	businessID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "business_id", "url", "secret_key", "event_type"}).
		AddRow(id, businessID, "https://example.com/hook", "s3cret", "event.scheduled")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, business_id, url, secret_key, event_type")).
		WithArgs(id).
		WillReturnRows(rows)

	webhook, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook", webhook.URL)
	assert.Equal(t, "s3cret", webhook.SecretKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRepositoryGetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWebhookRepository(NewBaseRepository(db))

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, business_id, url, secret_key, event_type")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "url", "secret_key", "event_type"}))

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWebhookRepositoryUpdateSecret(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWebhookRepository(NewBaseRepository(db))

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE webhooks SET secret_key = $2 WHERE id = $1")).
		WithArgs(id, "rotated").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSecret(context.Background(), id, "rotated"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRepositoryUpdateSecretNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWebhookRepository(NewBaseRepository(db))

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE webhooks SET secret_key = $2 WHERE id = $1")).
		WithArgs(id, "rotated").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateSecret(context.Background(), id, "rotated")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepositoryListGroups(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(NewBaseRepository(db))

	businessID := uuid.New()
	vips := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "business_id", "name"}).
		AddRow(vips, businessID, "vips").
		AddRow(uuid.New(), businessID, "weekly-digest")

	mock.ExpectQuery(regexp.QuoteMeta("FROM user_groups")).
		WithArgs(businessID).
		WillReturnRows(rows)

	groups, err := repo.ListGroups(context.Background(), businessID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, vips, groups[0].ID)
	assert.Equal(t, "vips", groups[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryGetDueEvents(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepository(NewBaseRepository(db))

	now := time.Now()
	eventID := uuid.New()
	businessID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "business_id", "title", "description", "scheduled_at", "target_rules", "recurrence", "created_at"}).
		AddRow(eventID, businessID, "launch", "product launch", now.Add(-time.Minute), []byte(`{"sendToAll":true}`), nil, now.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE scheduled_at <= $1")).
		WithArgs(now).
		WillReturnRows(rows)

	events, err := repo.GetDueEvents(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "launch", events[0].Title)

	rules, err := events[0].Rules()
	require.NoError(t, err)
	assert.True(t, rules.SendToAll)
}

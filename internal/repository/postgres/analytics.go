package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/model"
)

type analyticsRepository struct {
	BaseRepository
}

func NewAnalyticsRepository(base BaseRepository) *analyticsRepository {
	return &analyticsRepository{BaseRepository: base}
}

func (r *analyticsRepository) Create(ctx context.Context, record *model.EventAnalytics) error {
	query := `
		INSERT INTO event_analytics (id, event_id, processed_users, success_count, failure_count, processing_duration, engagement_score, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.EventID, record.ProcessedUsers, record.SuccessCount,
		record.FailureCount, record.ProcessingDuration, record.EngagementScore, record.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create analytics record: %w", err)
	}
	return nil
}

func (r *analyticsRepository) GetByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.EventAnalytics, error) {
	query := `
		SELECT a.id, a.event_id, a.processed_users, a.success_count, a.failure_count, a.processing_duration, a.engagement_score, a.timestamp
		FROM event_analytics a
		JOIN events e ON e.id = a.event_id
		WHERE e.business_id = $1
		ORDER BY a.timestamp DESC
	`
	var records []*model.EventAnalytics
	if err := r.db.SelectContext(ctx, &records, query, businessID); err != nil {
		return nil, fmt.Errorf("failed to get analytics for business %s: %w", businessID, err)
	}
	return records, nil
}

func (r *analyticsRepository) GetEngagementScores(ctx context.Context, businessID uuid.UUID) (map[uuid.UUID]float64, error) {
	query := `
		SELECT n.user_id, AVG(CASE WHEN n.status = 'sent' THEN 100.0 ELSE 0.0 END) AS score
		FROM notifications n
		JOIN users u ON u.id = n.user_id
		WHERE u.business_id = $1
		GROUP BY n.user_id
	`
	rows, err := r.db.QueryxContext(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to get engagement scores for business %s: %w", businessID, err)
	}
	defer rows.Close()

	scores := make(map[uuid.UUID]float64)
	for rows.Next() {
		var userID uuid.UUID
		var score float64
		if err := rows.Scan(&userID, &score); err != nil {
			return nil, fmt.Errorf("failed to scan engagement score: %w", err)
		}
		scores[userID] = score
	}
	return scores, rows.Err()
}

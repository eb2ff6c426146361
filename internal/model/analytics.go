package model

import (
	"time"

	"github.com/google/uuid"
)

// EventAnalytics is an immutable record written once per processed event per
// dispatch cycle.
type EventAnalytics struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	EventID            uuid.UUID     `json:"event_id" db:"event_id"`
	ProcessedUsers     int           `json:"processed_users" db:"processed_users"`
	SuccessCount       int           `json:"success_count" db:"success_count"`
	FailureCount       int           `json:"failure_count" db:"failure_count"`
	ProcessingDuration time.Duration `json:"processing_duration" db:"processing_duration"`
	EngagementScore    float64       `json:"engagement_score" db:"engagement_score"`
	Timestamp          time.Time     `json:"timestamp" db:"timestamp"`
}

// NewEventAnalytics derives the engagement score (success/processed as a
// percentage) at construction; records are never mutated afterwards.
func NewEventAnalytics(eventID uuid.UUID, processed, success, failure int, duration time.Duration) *EventAnalytics {
	score := 0.0
	if processed > 0 {
		score = float64(success) / float64(processed) * 100
	}
	return &EventAnalytics{
		ID:                 uuid.New(),
		EventID:            eventID,
		ProcessedUsers:     processed,
		SuccessCount:       success,
		FailureCount:       failure,
		ProcessingDuration: duration,
		EngagementScore:    score,
		Timestamp:          time.Now().UTC(),
	}
}

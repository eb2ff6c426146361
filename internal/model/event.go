package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
)

// Event is a scheduled notification trigger owned by a tenant. ScheduledAt is
// immutable once past; recurring events are never advanced in place, a new
// Event is created for the next occurrence instead.
type Event struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	BusinessID  uuid.UUID       `json:"business_id" db:"business_id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description" db:"description"`
	ScheduledAt time.Time       `json:"scheduled_at" db:"scheduled_at"`
	TargetRules json.RawMessage `json:"target_rules" db:"target_rules"`
	Recurrence  *RecurrenceType `json:"recurrence,omitempty" db:"recurrence"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// TargetRules is the declarative audience filter stored on an event. An empty
// document means the full tenant population.
type TargetRules struct {
	SendToAll        bool        `json:"sendToAll"`
	JoinedWithinDays *int        `json:"joinedWithinDays,omitempty"`
	UserIDs          []uuid.UUID `json:"explicitUserIds,omitempty"`
	GroupIDs         []uuid.UUID `json:"groupIds,omitempty"`
}

// Rules parses the stored targeting document once. A missing document yields
// zero rules, which resolves to the full tenant population.
func (e *Event) Rules() (TargetRules, error) {
	var rules TargetRules
	if len(e.TargetRules) == 0 {
		return rules, nil
	}
	if err := json.Unmarshal(e.TargetRules, &rules); err != nil {
		return TargetRules{}, err
	}
	return rules, nil
}

// NextOccurrence derives the schedule for the follow-up event of a recurring
// event. Returns nil for non-recurring events.
func (e *Event) NextOccurrence() *time.Time {
	if e.Recurrence == nil {
		return nil
	}
	var next time.Time
	switch *e.Recurrence {
	case RecurrenceDaily:
		next = e.ScheduledAt.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		next = e.ScheduledAt.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		next = e.ScheduledAt.AddDate(0, 1, 0)
	default:
		return nil
	}
	return &next
}

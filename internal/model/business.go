package model

import (
	"github.com/google/uuid"
)

// Business is a tenant. Rate limits come from its subscription plan; zero
// values mean the configured defaults apply.
type Business struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	Name                 string    `json:"name" db:"name"`
	ContactEmail         string    `json:"contact_email" db:"contact_email"`
	MaxRequestsPerMinute int       `json:"max_requests_per_minute" db:"max_requests_per_minute"`
	MaxRequestsPerHour   int       `json:"max_requests_per_hour" db:"max_requests_per_hour"`
}

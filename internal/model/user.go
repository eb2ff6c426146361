package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID          uuid.UUID `json:"id" db:"id"`
	BusinessID  uuid.UUID `json:"business_id" db:"business_id"`
	Name        string    `json:"name" db:"name"`
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	JoinedAt    time.Time `json:"joined_at" db:"joined_at"`
}

// UserGroup is a named subscriber segment. Targeting rules reference groups
// by id; the API lists a tenant's groups so rules can be authored against
// them.
type UserGroup struct {
	ID         uuid.UUID `json:"id" db:"id"`
	BusinessID uuid.UUID `json:"business_id" db:"business_id"`
	Name       string    `json:"name" db:"name"`
}

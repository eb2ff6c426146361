package model

import (
	"github.com/google/uuid"
)

// Webhook is a tenant-registered callback endpoint. SecretKey signs outbound
// payloads; rotating it affects new delivery attempts only, deliveries
// already signed with the prior key stay valid for the receiver that holds
// both.
type Webhook struct {
	ID         uuid.UUID `json:"id" db:"id"`
	BusinessID uuid.UUID `json:"business_id" db:"business_id"`
	URL        string    `json:"url" db:"url"`
	SecretKey  string    `json:"-" db:"secret_key"`
	EventType  string    `json:"event_type" db:"event_type"`
}

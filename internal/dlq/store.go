// Package dlq implements the dead-letter store for failed deliveries. Entries
// live in the shared cache under namespaced keys with a bounded TTL; an entry
// that is never successfully redelivered is silently dropped when its TTL
// expires. That bounds retry liability by policy, it is not a defect.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/cache"
)

// Kind tags a dead-letter entry with its redelivery handler.
type Kind string

const (
	KindWebhook Kind = "webhook"
	KindSMS     Kind = "sms"
)

// Key namespaces and retention windows. External tooling inspects the store
// by these patterns, so they are part of the wire contract.
const (
	webhookKeyPrefix = "dlq:webhooks:"
	smsKeyPrefix     = "dlq:sms:"

	WebhookTTL = 24 * time.Hour
	SMSTTL     = 7 * 24 * time.Hour
)

// Entry is the tagged variant stored for every failed delivery. Payload is
// kind-specific; decode it through Webhook() or SMS().
type Entry struct {
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// WebhookPayload is the redelivery context for a failed webhook delivery.
type WebhookPayload struct {
	WebhookID uuid.UUID       `json:"webhookId"`
	Payload   json.RawMessage `json:"payload"`
}

// SMSPayload is the redelivery context for a failed SMS notification.
type SMSPayload struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

func (e *Entry) Webhook() (WebhookPayload, error) {
	var p WebhookPayload
	if e.Kind != KindWebhook {
		return p, fmt.Errorf("entry is %q, not a webhook entry", e.Kind)
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return p, fmt.Errorf("failed to decode webhook dead-letter payload: %w", err)
	}
	return p, nil
}

func (e *Entry) SMS() (SMSPayload, error) {
	var p SMSPayload
	if e.Kind != KindSMS {
		return p, fmt.Errorf("entry is %q, not an sms entry", e.Kind)
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return p, fmt.Errorf("failed to decode sms dead-letter payload: %w", err)
	}
	return p, nil
}

type Store struct {
	cache cache.Store
}

func NewStore(cache cache.Store) *Store {
	return &Store{cache: cache}
}

// EnqueueWebhook records a failed webhook delivery under
// dlq:webhooks:{webhookId}. A later failure for the same webhook replaces the
// entry, so at most one dead letter per webhook is pending at a time.
func (s *Store) EnqueueWebhook(ctx context.Context, webhookID uuid.UUID, payload json.RawMessage) error {
	body, err := json.Marshal(WebhookPayload{WebhookID: webhookID, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode webhook dead letter: %w", err)
	}
	entry := Entry{Kind: KindWebhook, Payload: body, EnqueuedAt: time.Now().UTC()}
	return s.cache.Set(ctx, webhookKeyPrefix+webhookID.String(), entry, WebhookTTL)
}

// EnqueueSMS records a failed SMS under dlq:sms:{randomId} and returns the
// key. Every failed send gets its own entry.
func (s *Store) EnqueueSMS(ctx context.Context, phoneNumber, message string) (string, error) {
	body, err := json.Marshal(SMSPayload{PhoneNumber: phoneNumber, Message: message})
	if err != nil {
		return "", fmt.Errorf("failed to encode sms dead letter: %w", err)
	}
	key := smsKeyPrefix + uuid.NewString()
	entry := Entry{Kind: KindSMS, Payload: body, EnqueuedAt: time.Now().UTC()}
	if err := s.cache.Set(ctx, key, entry, SMSTTL); err != nil {
		return "", err
	}
	return key, nil
}

// Keys snapshots the pending entries of one kind. Entries may expire or be
// drained concurrently; callers must tolerate absent keys on Get.
func (s *Store) Keys(ctx context.Context, kind Kind) ([]string, error) {
	switch kind {
	case KindWebhook:
		return s.cache.Keys(ctx, webhookKeyPrefix+"*")
	case KindSMS:
		return s.cache.Keys(ctx, smsKeyPrefix+"*")
	default:
		return nil, fmt.Errorf("unknown dead-letter kind %q", kind)
	}
}

func (s *Store) Get(ctx context.Context, key string) (*Entry, bool, error) {
	var entry Entry
	found, err := s.cache.Get(ctx, key, &entry)
	if err != nil || !found {
		return nil, false, err
	}
	return &entry, true, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.cache.Remove(ctx, key)
}

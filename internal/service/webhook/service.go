// Package webhook implements the signed delivery engine: webhook lookup with
// a write-through cache, HMAC signing, bounded inline retry, and failure
// accounting. Dead-letter enqueueing belongs to callers; a retry worker
// draining the DLQ goes through the same Deliver path without re-enqueueing.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/cache"
	"github.com/jwalitptl/event-notify/internal/dlq"
	"github.com/jwalitptl/event-notify/internal/model"
	"github.com/jwalitptl/event-notify/internal/repository"
	"github.com/jwalitptl/event-notify/pkg/logger"
	"github.com/jwalitptl/event-notify/pkg/metrics"
	"github.com/jwalitptl/event-notify/pkg/retry"
)

// ErrUnknownWebhook marks a permanent reference failure: the webhook id does
// not exist, so the delivery is never retried and no failure is counted.
var ErrUnknownWebhook = errors.New("unknown webhook")

const (
	failureKeyPrefix = "failures:webhook:"
	lookupKeyPrefix  = "webhook:"
	listKeyPrefix    = "webhooks:"

	// FailureCounterTTL bounds how long a failure streak is remembered.
	FailureCounterTTL = 6 * time.Hour
)

type Config struct {
	// Timeout bounds each individual HTTP attempt.
	Timeout time.Duration
	// RetryAttempts is the inline transient-network retry budget for one
	// delivery. Distinct from the DLQ retry cycle.
	RetryAttempts int
	// RetryBase seeds the exponential backoff between inline attempts.
	RetryBase time.Duration
	// CacheTTL is the write-through lookup cache retention.
	CacheTTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 5
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 2 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Minute
	}
}

type Service struct {
	repo    repository.WebhookRepository
	cache   cache.Store
	dlq     *dlq.Store
	client  *http.Client
	logger  *logger.Logger
	metrics *metrics.Metrics
	cfg     Config
}

func NewService(repo repository.WebhookRepository, store cache.Store, dlqStore *dlq.Store,
	log *logger.Logger, m *metrics.Metrics, cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{
		repo:    repo,
		cache:   store,
		dlq:     dlqStore,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  log,
		metrics: m,
		cfg:     cfg,
	}
}

// cachedWebhook is the lookup-cache record. The API model hides SecretKey
// from JSON, so the cache carries its own representation.
type cachedWebhook struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"businessId"`
	URL        string    `json:"url"`
	SecretKey  string    `json:"secretKey"`
	EventType  string    `json:"eventType"`
}

func toCached(w *model.Webhook) cachedWebhook {
	return cachedWebhook{ID: w.ID, BusinessID: w.BusinessID, URL: w.URL, SecretKey: w.SecretKey, EventType: w.EventType}
}

func (c cachedWebhook) toModel() *model.Webhook {
	return &model.Webhook{ID: c.ID, BusinessID: c.BusinessID, URL: c.URL, SecretKey: c.SecretKey, EventType: c.EventType}
}

// wirePayload is the canonical request body: the signature is computed over
// exactly these serialized bytes.
type wirePayload struct {
	WebhookID uuid.UUID   `json:"webhookId"`
	Payload   interface{} `json:"payload"`
}

// eventPayload is what subscribers receive when an event fires.
type eventPayload struct {
	EventID     uuid.UUID `json:"eventId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

// Deliver signs and POSTs one delivery attempt (with inline transient retry)
// to the webhook's registered URL. On exhausted retries the per-webhook
// failure counter is incremented and an error returned; the caller decides
// whether to dead-letter. Success touches neither the DLQ nor the counter.
func (s *Service) Deliver(ctx context.Context, webhookID uuid.UUID, payload interface{}) error {
	webhook, err := s.lookup(ctx, webhookID)
	if err != nil {
		return err
	}

	body, err := json.Marshal(wirePayload{WebhookID: webhook.ID, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}
	signature := Sign(webhook.SecretKey, body)

	start := time.Now()
	err = retry.Do(ctx, s.cfg.RetryAttempts, s.cfg.RetryBase, func() error {
		return s.post(ctx, webhook, body, signature)
	})
	s.metrics.WebhookLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.WebhooksFailed.Inc()
		s.recordFailure(ctx, webhook.ID)
		return fmt.Errorf("webhook %s delivery failed: %w", webhook.ID, err)
	}

	s.metrics.WebhooksDelivered.Inc()
	return nil
}

// TriggerForEvent fans the event out to every webhook registered for its
// tenant. Exhausted deliveries are dead-lettered; an unknown webhook is
// permanent and skipped.
func (s *Service) TriggerForEvent(ctx context.Context, event *model.Event) error {
	webhooks, err := s.listForBusiness(ctx, event.BusinessID)
	if err != nil {
		return err
	}
	if len(webhooks) == 0 {
		s.logger.Debug("no webhooks registered", "business_id", event.BusinessID.String())
		return nil
	}

	raw, err := json.Marshal(eventPayload{
		EventID:     event.ID,
		Title:       event.Title,
		Description: event.Description,
		ScheduledAt: event.ScheduledAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	for _, webhook := range webhooks {
		if err := s.Deliver(ctx, webhook.ID, json.RawMessage(raw)); err != nil {
			if errors.Is(err, ErrUnknownWebhook) {
				continue
			}
			s.logger.Warn("webhook delivery failed, dead-lettering",
				"webhook_id", webhook.ID.String(), "url", webhook.URL)
			if dlqErr := s.dlq.EnqueueWebhook(ctx, webhook.ID, raw); dlqErr != nil {
				s.logger.Error(dlqErr, "failed to dead-letter webhook", "webhook_id", webhook.ID.String())
				continue
			}
			s.metrics.DeadLettered.WithLabelValues(string(dlq.KindWebhook)).Inc()
		}
	}
	return nil
}

// RotateSecret installs a new signing secret and invalidates lookup caches.
// Rotation affects new attempts only; deliveries already signed with the
// prior secret are untouched.
func (s *Service) RotateSecret(ctx context.Context, webhookID uuid.UUID, secret string) error {
	webhook, err := s.lookup(ctx, webhookID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateSecret(ctx, webhookID, secret); err != nil {
		return fmt.Errorf("failed to rotate secret for webhook %s: %w", webhookID, err)
	}
	if err := s.cache.Remove(ctx, lookupKeyPrefix+webhookID.String()); err != nil {
		s.logger.Error(err, "failed to invalidate webhook cache", "webhook_id", webhookID.String())
	}
	if err := s.cache.Remove(ctx, listKeyPrefix+webhook.BusinessID.String()); err != nil {
		s.logger.Error(err, "failed to invalidate webhook list cache", "business_id", webhook.BusinessID.String())
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, webhookID uuid.UUID) (*model.Webhook, error) {
	key := lookupKeyPrefix + webhookID.String()

	var cached cachedWebhook
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Error(err, "webhook cache read failed", "webhook_id", webhookID.String())
	}
	if found {
		return cached.toModel(), nil
	}

	webhook, err := s.repo.GetByID(ctx, webhookID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWebhook, webhookID)
	}
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, toCached(webhook), s.cfg.CacheTTL); err != nil {
		s.logger.Error(err, "webhook cache write failed", "webhook_id", webhookID.String())
	}
	return webhook, nil
}

func (s *Service) listForBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.Webhook, error) {
	key := listKeyPrefix + businessID.String()

	var cached []cachedWebhook
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Error(err, "webhook list cache read failed", "business_id", businessID.String())
	}
	if found {
		webhooks := make([]*model.Webhook, len(cached))
		for i, c := range cached {
			webhooks[i] = c.toModel()
		}
		return webhooks, nil
	}

	webhooks, err := s.repo.GetByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if len(webhooks) > 0 {
		records := make([]cachedWebhook, len(webhooks))
		for i, w := range webhooks {
			records[i] = toCached(w)
		}
		if err := s.cache.Set(ctx, key, records, s.cfg.CacheTTL); err != nil {
			s.logger.Error(err, "webhook list cache write failed", "business_id", businessID.String())
		}
	}
	return webhooks, nil
}

func (s *Service) post(ctx context.Context, webhook *model.Webhook, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderWebhookID, webhook.ID.String())

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, webhook.URL)
	}
	return nil
}

// recordFailure increments failures:webhook:{id}. The failure monitor
// escalates and resets it when it crosses the threshold; success never clears
// it, it only stops growing.
func (s *Service) recordFailure(ctx context.Context, webhookID uuid.UUID) {
	key := failureKeyPrefix + webhookID.String()
	var count int
	if _, err := s.cache.Get(ctx, key, &count); err != nil {
		s.logger.Error(err, "failed to read failure counter", "webhook_id", webhookID.String())
	}
	if err := s.cache.Set(ctx, key, count+1, FailureCounterTTL); err != nil {
		s.logger.Error(err, "failed to increment failure counter", "webhook_id", webhookID.String())
	}
}

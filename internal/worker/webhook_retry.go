// Package worker holds the background loops that run alongside the
// dispatcher: dead-letter retry drains, the chronic-failure monitor and the
// upcoming-events prefetcher. Each worker owns a ticker loop stopped by
// context cancellation, and the retry drains share a per-worker circuit
// breaker so a downed dependency fails fast instead of burning the whole
// cycle.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/dlq"
	"github.com/jwalitptl/event-notify/internal/service/webhook"
	"github.com/jwalitptl/event-notify/pkg/circuitbreaker"
	"github.com/jwalitptl/event-notify/pkg/logger"
	"github.com/jwalitptl/event-notify/pkg/metrics"
	"github.com/jwalitptl/event-notify/pkg/retry"
)

// WebhookDeliverer redelivers a dead-lettered webhook payload. Satisfied by
// the webhook service; redelivery goes through the same signing and inline
// retry as a first delivery.
type WebhookDeliverer interface {
	Deliver(ctx context.Context, webhookID uuid.UUID, payload interface{}) error
}

// WebhookRetryWorker drains the webhook dead-letter queue on an interval.
// Entries that redeliver (or reference a deleted webhook) are removed; the
// rest stay queued for the next cycle until their TTL expires.
type WebhookRetryWorker struct {
	dlq       *dlq.Store
	deliverer WebhookDeliverer
	breaker   *circuitbreaker.CircuitBreaker
	logger    *logger.Logger
	metrics   *metrics.Metrics
	interval  time.Duration

	retryAttempts int
	retryBase     time.Duration
}

func NewWebhookRetryWorker(dlqStore *dlq.Store, deliverer WebhookDeliverer,
	log *logger.Logger, m *metrics.Metrics, interval time.Duration,
	breakerSettings circuitbreaker.Settings) *WebhookRetryWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	breakerSettings.Name = "webhook-retry"
	return &WebhookRetryWorker{
		dlq:           dlqStore,
		deliverer:     deliverer,
		breaker:       circuitbreaker.NewCircuitBreaker(breakerSettings),
		logger:        log,
		metrics:       m,
		interval:      interval,
		retryAttempts: 3,
		retryBase:     2 * time.Second,
	}
}

func (w *WebhookRetryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("webhook retry worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("webhook retry worker stopped")
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain walks the pending webhook dead letters once. An open breaker aborts
// the pass early; the remaining entries are untouched and picked up next
// cycle.
func (w *WebhookRetryWorker) Drain(ctx context.Context) {
	keys, err := w.dlq.Keys(ctx, dlq.KindWebhook)
	if err != nil {
		w.logger.Error(err, "failed to list webhook dead letters")
		return
	}

	for _, key := range keys {
		if ctx.Err() != nil {
			return
		}
		entry, found, err := w.dlq.Get(ctx, key)
		if err != nil {
			w.logger.Error(err, "failed to read dead letter", "key", key)
			continue
		}
		if !found {
			continue
		}
		payload, err := entry.Webhook()
		if err != nil {
			w.logger.Error(err, "dropping undecodable dead letter", "key", key)
			w.removeEntry(ctx, key)
			continue
		}

		// Redelivery policy per entry: bounded retry around the breaker, so an
		// open breaker fails fast instead of burning network attempts.
		before := w.breaker.State()
		w.metrics.RetryAttempts.WithLabelValues(string(dlq.KindWebhook)).Inc()
		err = retry.Do(ctx, w.retryAttempts, w.retryBase, func() error {
			return w.breaker.Execute(func() error {
				return w.deliverer.Deliver(ctx, payload.WebhookID, payload.Payload)
			})
		})
		w.observeBreaker(before)

		switch {
		case err == nil:
			w.metrics.Redelivered.WithLabelValues(string(dlq.KindWebhook)).Inc()
			w.removeEntry(ctx, key)
		case errors.Is(err, webhook.ErrUnknownWebhook):
			// The webhook was deleted; there is nothing left to deliver to.
			w.logger.Info("dropping dead letter for deleted webhook",
				"webhook_id", payload.WebhookID.String())
			w.removeEntry(ctx, key)
		case errors.Is(err, circuitbreaker.ErrOpen):
			w.logger.Warn("webhook retry breaker open, ending drain early")
			return
		default:
			w.logger.Warn("webhook redelivery failed, keeping entry",
				"webhook_id", payload.WebhookID.String())
		}
	}
}

func (w *WebhookRetryWorker) removeEntry(ctx context.Context, key string) {
	if err := w.dlq.Remove(ctx, key); err != nil {
		w.logger.Error(err, "failed to remove dead letter", "key", key)
	}
}

func (w *WebhookRetryWorker) observeBreaker(before string) {
	after := w.breaker.State()
	if after != before {
		w.metrics.BreakerTransitions.WithLabelValues("webhook-retry", after).Inc()
	}
}

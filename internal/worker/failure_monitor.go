package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/alert"
	"github.com/jwalitptl/event-notify/internal/cache"
	"github.com/jwalitptl/event-notify/internal/repository"
	"github.com/jwalitptl/event-notify/pkg/logger"
	"github.com/jwalitptl/event-notify/pkg/metrics"
)

const failureKeyPrefix = "failures:webhook:"

// FailureMonitor scans per-webhook failure counters and escalates chronic
// failures to the owning tenant's contact. Crossing the threshold produces
// exactly one alert: the counter is reset by deleting it, so a still-broken
// webhook alerts again only after another full failure streak.
type FailureMonitor struct {
	cache      cache.Store
	webhooks   repository.WebhookRepository
	businesses repository.BusinessRepository
	notifier   alert.Notifier
	logger     *logger.Logger
	metrics    *metrics.Metrics
	interval   time.Duration
	threshold  int
}

func NewFailureMonitor(store cache.Store, webhooks repository.WebhookRepository,
	businesses repository.BusinessRepository, notifier alert.Notifier,
	log *logger.Logger, m *metrics.Metrics, interval time.Duration, threshold int) *FailureMonitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if threshold <= 0 {
		threshold = 5
	}
	return &FailureMonitor{
		cache:      store,
		webhooks:   webhooks,
		businesses: businesses,
		notifier:   notifier,
		logger:     log,
		metrics:    m,
		interval:   interval,
		threshold:  threshold,
	}
}

func (w *FailureMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("failure monitor started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("failure monitor stopped")
			return
		case <-ticker.C:
			w.Scan(ctx)
		}
	}
}

// Scan walks the failure counters once. Counters below the threshold are left
// to keep accumulating (or expire); counters at or above it are escalated and
// reset.
func (w *FailureMonitor) Scan(ctx context.Context) {
	keys, err := w.cache.Keys(ctx, failureKeyPrefix+"*")
	if err != nil {
		w.logger.Error(err, "failed to list failure counters")
		return
	}

	for _, key := range keys {
		if ctx.Err() != nil {
			return
		}
		var count int
		found, err := w.cache.Get(ctx, key, &count)
		if err != nil {
			w.logger.Error(err, "failed to read failure counter", "key", key)
			continue
		}
		if !found || count < w.threshold {
			continue
		}
		w.escalate(ctx, key, count)
	}
}

func (w *FailureMonitor) escalate(ctx context.Context, key string, count int) {
	webhookID, err := uuid.Parse(strings.TrimPrefix(key, failureKeyPrefix))
	if err != nil {
		w.logger.Error(err, "malformed failure counter key, removing", "key", key)
		w.resetCounter(ctx, key)
		return
	}

	webhook, err := w.webhooks.GetByID(ctx, webhookID)
	if errors.Is(err, repository.ErrNotFound) {
		// The webhook is gone; its failure history is moot.
		w.resetCounter(ctx, key)
		return
	}
	if err != nil {
		w.logger.Error(err, "failed to load webhook for escalation", "webhook_id", webhookID.String())
		return
	}

	business, err := w.businesses.GetByID(ctx, webhook.BusinessID)
	if err != nil {
		w.logger.Error(err, "failed to load business for escalation", "business_id", webhook.BusinessID.String())
		return
	}

	if err := w.notifier.NotifyFailure(ctx, business.ContactEmail, webhook.ID.String(), webhook.URL, count); err != nil {
		// Keep the counter so the next scan can try alerting again.
		w.logger.Error(err, "failed to send escalation alert", "webhook_id", webhook.ID.String())
		return
	}

	w.metrics.EscalationAlerts.Inc()
	w.logger.Warn("escalated chronically failing webhook",
		"webhook_id", webhook.ID.String(), "business_id", business.ID.String())
	w.resetCounter(ctx, key)
}

func (w *FailureMonitor) resetCounter(ctx context.Context, key string) {
	if err := w.cache.Remove(ctx, key); err != nil {
		w.logger.Error(err, "failed to reset failure counter", "key", key)
	}
}

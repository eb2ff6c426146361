package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/event-notify/internal/dlq"
	"github.com/jwalitptl/event-notify/pkg/circuitbreaker"
	"github.com/jwalitptl/event-notify/pkg/logger"
	"github.com/jwalitptl/event-notify/pkg/metrics"
	"github.com/jwalitptl/event-notify/pkg/retry"
)

// SMSRedeliverer retries a dead-lettered SMS without re-enqueueing it.
type SMSRedeliverer interface {
	Redeliver(ctx context.Context, phoneNumber, message string) error
}

// SMSRetryWorker drains the SMS dead-letter queue on an interval.
type SMSRetryWorker struct {
	dlq      *dlq.Store
	notifier SMSRedeliverer
	breaker  *circuitbreaker.CircuitBreaker
	logger   *logger.Logger
	metrics  *metrics.Metrics
	interval time.Duration

	retryAttempts int
	retryBase     time.Duration
}

func NewSMSRetryWorker(dlqStore *dlq.Store, notifier SMSRedeliverer,
	log *logger.Logger, m *metrics.Metrics, interval time.Duration,
	breakerSettings circuitbreaker.Settings) *SMSRetryWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	breakerSettings.Name = "sms-retry"
	return &SMSRetryWorker{
		dlq:           dlqStore,
		notifier:      notifier,
		breaker:       circuitbreaker.NewCircuitBreaker(breakerSettings),
		logger:        log,
		metrics:       m,
		interval:      interval,
		retryAttempts: 3,
		retryBase:     2 * time.Second,
	}
}

func (w *SMSRetryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("sms retry worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sms retry worker stopped")
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain walks the pending SMS dead letters once. Failed entries stay queued
// until redelivered or expired; an open breaker aborts the pass.
func (w *SMSRetryWorker) Drain(ctx context.Context) {
	keys, err := w.dlq.Keys(ctx, dlq.KindSMS)
	if err != nil {
		w.logger.Error(err, "failed to list sms dead letters")
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
		payload, err := entry.SMS()
		if err != nil {
			w.logger.Error(err, "dropping undecodable dead letter", "key", key)
			w.removeEntry(ctx, key)
			continue
		}

		before := w.breaker.State()
		w.metrics.RetryAttempts.WithLabelValues(string(dlq.KindSMS)).Inc()
		err = retry.Do(ctx, w.retryAttempts, w.retryBase, func() error {
			return w.breaker.Execute(func() error {
				return w.notifier.Redeliver(ctx, payload.PhoneNumber, payload.Message)
			})
		})
		after := w.breaker.State()
		if after != before {
			w.metrics.BreakerTransitions.WithLabelValues("sms-retry", after).Inc()
		}

		switch {
		case err == nil:
			w.metrics.Redelivered.WithLabelValues(string(dlq.KindSMS)).Inc()
			w.removeEntry(ctx, key)
		case errors.Is(err, circuitbreaker.ErrOpen):
			w.logger.Warn("sms retry breaker open, ending drain early")
			return
		default:
			w.logger.Warn("sms redelivery failed, keeping entry", "phone_number", payload.PhoneNumber)
		}
	}
}

func (w *SMSRetryWorker) removeEntry(ctx context.Context, key string) {
	if err := w.dlq.Remove(ctx, key); err != nil {
		w.logger.Error(err, "failed to remove dead letter", "key", key)
	}
}

// Package notification sends SMS reminders with bounded retry and dead-letter
// capture on exhaustion.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/event-notify/internal/dlq"
	"github.com/jwalitptl/event-notify/pkg/logger"
	"github.com/jwalitptl/event-notify/pkg/metrics"
	"github.com/jwalitptl/event-notify/pkg/retry"
)

// Sender is the SMS gateway boundary. Implementations must be safe for
// concurrent use; the dispatcher fans out sends.
type Sender interface {
	SendSMS(ctx context.Context, phoneNumber, message string) error
}

// LogSender is the development gateway: it logs instead of sending.
type LogSender struct {
	Logger *logger.Logger
}

func (s *LogSender) SendSMS(_ context.Context, phoneNumber, message string) error {
	s.Logger.Info("sms send (log gateway)", "phone_number", phoneNumber, "message", message)
	return nil
}

type Config struct {
	RetryAttempts int
	RetryBase     time.Duration
}

func (c *Config) applyDefaults() {
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBase <= 0 {
		c.RetryBase = time.Second
	}
}

type Service struct {
	sender  Sender
	dlq     *dlq.Store
	logger  *logger.Logger
	metrics *metrics.Metrics
	cfg     Config
}

func NewService(sender Sender, dlqStore *dlq.Store, log *logger.Logger, m *metrics.Metrics, cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{
		sender:  sender,
		dlq:     dlqStore,
		logger:  log,
		metrics: m,
		cfg:     cfg,
	}
}

// Send attempts the SMS with retry; exhaustion dead-letters the message and
// returns the send error. A dead-letter write failure is logged, not
// returned, so the original cause is what the caller sees.
func (s *Service) Send(ctx context.Context, phoneNumber, message string) error {
	err := s.attempt(ctx, phoneNumber, message)
	if err == nil {
		return nil
	}

	s.logger.Warn("sms send exhausted retries, dead-lettering", "phone_number", phoneNumber)
	if _, dlqErr := s.dlq.EnqueueSMS(ctx, phoneNumber, message); dlqErr != nil {
		s.logger.Error(dlqErr, "failed to dead-letter sms", "phone_number", phoneNumber)
	} else {
		s.metrics.DeadLettered.WithLabelValues(string(dlq.KindSMS)).Inc()
	}
	return fmt.Errorf("sms to %s failed: %w", phoneNumber, err)
}

// Redeliver retries a dead-lettered SMS without re-enqueueing; the retry
// worker owns the entry's lifecycle.
func (s *Service) Redeliver(ctx context.Context, phoneNumber, message string) error {
	return s.attempt(ctx, phoneNumber, message)
}

func (s *Service) attempt(ctx context.Context, phoneNumber, message string) error {
	err := retry.Do(ctx, s.cfg.RetryAttempts, s.cfg.RetryBase, func() error {
		return s.sender.SendSMS(ctx, phoneNumber, message)
	})
	if err != nil {
		s.metrics.SMSFailed.Inc()
		return err
	}
	s.metrics.SMSDelivered.Inc()
	return nil
}

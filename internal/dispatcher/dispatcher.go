// Package dispatcher drives the scheduled-event pipeline: every tick it pulls
// due events, fires tenant webhooks, resolves each event's audience, fans out
// SMS reminders with bounded concurrency and records analytics, then expands
// due recurring events into their next occurrence in a separate pass.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/model"
	"github.com/jwalitptl/event-notify/internal/repository"
	"github.com/jwalitptl/event-notify/pkg/logger"
	"github.com/jwalitptl/event-notify/pkg/metrics"
)

// AudienceResolver expands an event's targeting rule into recipients.
type AudienceResolver interface {
	Resolve(ctx context.Context, event *model.Event) ([]*model.User, error)
}

// SMSSender delivers one reminder; exhausted sends are already dead-lettered
// by the implementation.
type SMSSender interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// WebhookTrigger fans an event out to the tenant's registered webhooks.
type WebhookTrigger interface {
	TriggerForEvent(ctx context.Context, event *model.Event) error
}

type Config struct {
	// Interval between dispatch cycles.
	Interval time.Duration
	// Concurrency bounds simultaneous SMS sends per event.
	Concurrency int
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
}

type Dispatcher struct {
	events    repository.EventRepository
	analytics repository.AnalyticsRepository
	audience  AudienceResolver
	sms       SMSSender
	webhooks  WebhookTrigger
	logger    *logger.Logger
	metrics   *metrics.Metrics
	cfg       Config

	nowFn func() time.Time
}

func New(events repository.EventRepository, analytics repository.AnalyticsRepository,
	audience AudienceResolver, sms SMSSender, webhooks WebhookTrigger,
	log *logger.Logger, m *metrics.Metrics, cfg Config) *Dispatcher {
	cfg.applyDefaults()
	return &Dispatcher{
		events:    events,
		analytics: analytics,
		audience:  audience,
		sms:       sms,
		webhooks:  webhooks,
		logger:    log,
		metrics:   m,
		cfg:       cfg,
		nowFn:     time.Now,
	}
}

// Start runs dispatch cycles until the context is cancelled. One cycle runs
// immediately so a restart does not wait a full interval to drain due events.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	d.logger.Info("dispatcher started", "interval", d.cfg.Interval.String())
	d.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.RunCycle(ctx)
		}
	}
}

// RunCycle processes all currently due events, then runs the recurrence pass
// as a separate step. Per-event failures are logged and do not abort the
// cycle; a failed delivery pass does not block the follow-up occurrence.
func (d *Dispatcher) RunCycle(ctx context.Context) {
	now := d.nowFn().UTC()
	due, err := d.events.GetDueEvents(ctx, now)
	if err != nil {
		d.logger.Error(err, "failed to load due events")
		return
	}
	if len(due) > 0 {
		d.logger.Info("processing due events", "count", fmt.Sprintf("%d", len(due)))
	}

	for _, event := range due {
		if ctx.Err() != nil {
			return
		}
		if err := d.ProcessEvent(ctx, event); err != nil {
			d.logger.Error(err, "failed to process event", "event_id", event.ID.String())
		}
	}

	d.expandRecurrences(ctx, now)
}

// expandRecurrences creates the next occurrence for every due recurring
// event. Driven by its own query so the pass stays independent of the
// delivery loop's outcome.
func (d *Dispatcher) expandRecurrences(ctx context.Context, now time.Time) {
	recurring, err := d.events.GetRecurringEvents(ctx, now)
	if err != nil {
		d.logger.Error(err, "failed to load recurring events")
		return
	}
	for _, event := range recurring {
		if ctx.Err() != nil {
			return
		}
		if err := d.expandRecurring(ctx, event); err != nil {
			d.logger.Error(err, "failed to expand recurring event", "event_id", event.ID.String())
		}
	}
}

// ProcessEvent fires the tenant's webhooks, then resolves the audience and
// fans out reminders, writing one analytics record. Webhooks go first and do
// not depend on resolution: a malformed targeting rule must not silence the
// tenant's subscribers. The webhook fan-out handles its own dead-lettering;
// SMS failures are counted but never abort remaining sends.
func (d *Dispatcher) ProcessEvent(ctx context.Context, event *model.Event) error {
	start := d.nowFn()
	defer func() {
		d.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	if err := d.webhooks.TriggerForEvent(ctx, event); err != nil {
		d.logger.Error(err, "webhook fan-out failed", "event_id", event.ID.String())
	}

	users, err := d.audience.Resolve(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to resolve audience for event %s: %w", event.ID, err)
	}

	message := reminderMessage(event)

	var success, failure int64
	var wg sync.WaitGroup
	sem := make(chan struct{}, d.cfg.Concurrency)
	for _, user := range users {
		wg.Add(1)
		sem <- struct{}{}
		go func(u *model.User) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := d.sms.Send(ctx, u.PhoneNumber, message); err != nil {
				atomic.AddInt64(&failure, 1)
				return
			}
			atomic.AddInt64(&success, 1)
		}(user)
	}
	wg.Wait()

	record := model.NewEventAnalytics(event.ID, len(users), int(atomic.LoadInt64(&success)),
		int(atomic.LoadInt64(&failure)), time.Since(start))
	if err := d.analytics.Create(ctx, record); err != nil {
		d.logger.Error(err, "failed to record analytics", "event_id", event.ID.String())
	}

	d.metrics.EventsProcessed.Inc()
	return nil
}

// expandRecurring creates the follow-up event for a recurring event. The
// processed event is never mutated; recurrence materializes as a new row with
// a fresh id and the same targeting rule.
func (d *Dispatcher) expandRecurring(ctx context.Context, event *model.Event) error {
	next := event.NextOccurrence()
	if next == nil {
		return nil
	}

	follow := &model.Event{
		ID:          uuid.New(),
		BusinessID:  event.BusinessID,
		Title:       event.Title,
		Description: event.Description,
		ScheduledAt: *next,
		TargetRules: event.TargetRules,
		Recurrence:  event.Recurrence,
		CreatedAt:   d.nowFn().UTC(),
	}
	if err := d.events.Create(ctx, follow); err != nil {
		return fmt.Errorf("failed to create next occurrence of event %s: %w", event.ID, err)
	}
	d.metrics.EventsRecurred.Inc()
	d.logger.Info("recurring event expanded",
		"event_id", event.ID.String(), "next_id", follow.ID.String(), "scheduled_at", next.Format(time.RFC3339))
	return nil
}

func reminderMessage(event *model.Event) string {
	return fmt.Sprintf("Event Reminder: %s is scheduled for %s",
		event.Title, event.ScheduledAt.Format(time.RFC1123))
}

package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/event-notify/internal/cache"
	"github.com/jwalitptl/event-notify/internal/repository"
	"github.com/jwalitptl/event-notify/pkg/logger"
)

const (
	upcomingKeyPrefix = "events:upcoming:"
	upcomingLimit     = 5
	upcomingTTL       = 5 * time.Minute
)

// Prefetcher warms the upcoming-events cache per tenant so read paths serve
// the next few events without a database round trip.
type Prefetcher struct {
	events     repository.EventRepository
	businesses repository.BusinessRepository
	cache      cache.Store
	logger     *logger.Logger
	interval   time.Duration

	nowFn func() time.Time
}

func NewPrefetcher(events repository.EventRepository, businesses repository.BusinessRepository,
	store cache.Store, log *logger.Logger, interval time.Duration) *Prefetcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Prefetcher{
		events:     events,
		businesses: businesses,
		cache:      store,
		logger:     log,
		interval:   interval,
		nowFn:      time.Now,
	}
}

func (w *Prefetcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("prefetcher started", "interval", w.interval.String())
	w.Warm(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("prefetcher stopped")
			return
		case <-ticker.C:
			w.Warm(ctx)
		}
	}
}

// Warm refreshes the cached upcoming events for every tenant. A tenant with
// nothing scheduled gets an empty list cached, so readers still get a warm
// miss.
func (w *Prefetcher) Warm(ctx context.Context) {
	businesses, err := w.businesses.List(ctx)
	if err != nil {
		w.logger.Error(err, "failed to list businesses for prefetch")
		return
	}

	now := w.nowFn().UTC()
	for _, business := range businesses {
		if ctx.Err() != nil {
			return
		}
		upcoming, err := w.events.GetUpcomingByBusiness(ctx, business.ID, now, upcomingLimit)
		if err != nil {
			w.logger.Error(err, "failed to load upcoming events", "business_id", business.ID.String())
			continue
		}
		key := upcomingKeyPrefix + business.ID.String()
		if err := w.cache.Set(ctx, key, upcoming, upcomingTTL); err != nil {
			w.logger.Error(err, "failed to cache upcoming events", "business_id", business.ID.String())
		}
	}
}

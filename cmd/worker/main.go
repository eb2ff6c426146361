package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/event-notify/internal/alert"
	"github.com/jwalitptl/event-notify/internal/cache"
	"github.com/jwalitptl/event-notify/internal/config"
	"github.com/jwalitptl/event-notify/internal/dispatcher"
	"github.com/jwalitptl/event-notify/internal/dlq"
	"github.com/jwalitptl/event-notify/internal/repository/postgres"
	"github.com/jwalitptl/event-notify/internal/service/audience"
	"github.com/jwalitptl/event-notify/internal/service/notification"
	webhooksvc "github.com/jwalitptl/event-notify/internal/service/webhook"
	"github.com/jwalitptl/event-notify/internal/worker"
	"github.com/jwalitptl/event-notify/pkg/circuitbreaker"
	"github.com/jwalitptl/event-notify/pkg/logger"
	"github.com/jwalitptl/event-notify/pkg/metrics"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatal(err, "failed to initialize cache backend")
	}

	m := metrics.New("event_notify")

	base := postgres.NewBaseRepository(db)
	eventRepo := postgres.NewEventRepository(base)
	userRepo := postgres.NewUserRepository(base)
	webhookRepo := postgres.NewWebhookRepository(base)
	analyticsRepo := postgres.NewAnalyticsRepository(base)
	businessRepo := postgres.NewBusinessRepository(base)

	dlqStore := dlq.NewStore(store)

	webhookService := webhooksvc.NewService(webhookRepo, store, dlqStore, log, m, webhooksvc.Config{
		Timeout:       cfg.Webhook.Timeout,
		RetryAttempts: cfg.Webhook.RetryAttempts,
		RetryBase:     cfg.Webhook.RetryBase,
		CacheTTL:      cfg.Webhook.CacheTTL,
	})
	notifier := notification.NewService(&notification.LogSender{Logger: log}, dlqStore, log, m,
		notification.Config{
			RetryAttempts: cfg.Notification.RetryAttempts,
			RetryBase:     cfg.Notification.RetryBase,
		})
	resolver := audience.NewResolver(userRepo, analyticsRepo, log)

	d := dispatcher.New(eventRepo, analyticsRepo, resolver, notifier, webhookService, log, m,
		dispatcher.Config{
			Interval:    cfg.Dispatcher.Interval,
			Concurrency: cfg.Dispatcher.Concurrency,
		})

	breakerSettings := circuitbreaker.Settings{
		FailureThreshold: cfg.Workers.BreakerThreshold,
		Cooldown:         cfg.Workers.BreakerCooldown,
	}
	webhookRetry := worker.NewWebhookRetryWorker(dlqStore, webhookService, log, m,
		cfg.Workers.WebhookRetryInterval, breakerSettings)
	smsRetry := worker.NewSMSRetryWorker(dlqStore, notifier, log, m,
		cfg.Workers.SMSRetryInterval, breakerSettings)

	var alerter alert.Notifier = &alert.LogNotifier{Logger: log}
	if cfg.SMTP.Host != "" {
		alerter = alert.NewMailer(alert.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	monitor := worker.NewFailureMonitor(store, webhookRepo, businessRepo, alerter, log, m,
		cfg.Workers.FailureMonitorInterval, cfg.Workers.FailureThreshold)
	prefetcher := worker.NewPrefetcher(eventRepo, businessRepo, store, log, cfg.Workers.PrefetchInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	run := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
	run(d.Start)
	run(webhookRetry.Start)
	run(smsRetry.Start)
	run(monitor.Start)
	run(prefetcher.Start)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down workers")
	cancel()
	wg.Wait()
}

func buildStore(cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Backend != "redis" {
		return cache.NewMemoryStore(), nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return cache.NewRedisStoreWithClient(client), nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/event-notify/internal/cache"
	"github.com/jwalitptl/event-notify/internal/config"
	"github.com/jwalitptl/event-notify/internal/dlq"
	"github.com/jwalitptl/event-notify/internal/handler"
	"github.com/jwalitptl/event-notify/internal/middleware"
	"github.com/jwalitptl/event-notify/internal/ratelimit"
	"github.com/jwalitptl/event-notify/internal/repository/postgres"
	"github.com/jwalitptl/event-notify/internal/router"
	webhooksvc "github.com/jwalitptl/event-notify/internal/service/webhook"
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

	store, limiterStore, err := buildStores(cfg)
	if err != nil {
		log.Fatal(err, "failed to initialize cache backend")
	}

	m := metrics.New("event_notify")

	base := postgres.NewBaseRepository(db)
	eventRepo := postgres.NewEventRepository(base)
	webhookRepo := postgres.NewWebhookRepository(base)
	analyticsRepo := postgres.NewAnalyticsRepository(base)
	businessRepo := postgres.NewBusinessRepository(base)
	userRepo := postgres.NewUserRepository(base)

	dlqStore := dlq.NewStore(store)
	webhookService := webhooksvc.NewService(webhookRepo, store, dlqStore, log, m, webhooksvc.Config{
		Timeout:       cfg.Webhook.Timeout,
		RetryAttempts: cfg.Webhook.RetryAttempts,
		RetryBase:     cfg.Webhook.RetryBase,
		CacheTTL:      cfg.Webhook.CacheTTL,
	})

	tenantLimiter := middleware.NewTenantRateLimiter(limiterStore, businessRepo, log, m,
		cfg.RateLimit.DefaultPerMinute, cfg.RateLimit.DefaultPerHour)

	r := router.New(tenantLimiter, router.Config{
		GlobalRate:  rate.Limit(cfg.RateLimit.GlobalRate),
		GlobalBurst: cfg.RateLimit.GlobalBurst,
	},
		handler.NewEventHandler(eventRepo, store, log),
		handler.NewWebhookHandler(webhookRepo, webhookService, log),
		handler.NewAnalyticsHandler(analyticsRepo, log),
		handler.NewGroupHandler(userRepo, log),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("api server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "forced shutdown")
	}
}

// buildStores returns the shared key-value store and the rate-limit counter
// store for the configured backend. Redis shares one client between the two.
func buildStores(cfg *config.Config) (cache.Store, ratelimit.Store, error) {
	if cfg.Cache.Backend != "redis" {
		return cache.NewMemoryStore(), ratelimit.NewMemoryStore(), nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return cache.NewRedisStoreWithClient(client), ratelimit.NewRedisStore(client), nil
}

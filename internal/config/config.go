// Package config loads service configuration from config.yaml via viper, then
// overlays environment variables (prefix EVENTNOTIFY_) via envconfig so
// deployments can override single values without editing the file.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Cache        CacheConfig        `mapstructure:"cache"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Dispatcher   DispatcherConfig   `mapstructure:"dispatcher"`
	Webhook      WebhookConfig      `mapstructure:"webhook"`
	Notification NotificationConfig `mapstructure:"notification"`
	Workers      WorkersConfig      `mapstructure:"workers"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port" validate:"min=1,max=65535"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"min=1"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// CacheConfig selects the shared key-value backend. "memory" serves
// single-instance deployments and tests; "redis" is required when more than
// one instance shares rate-limit counters and the dead-letter store.
type CacheConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory redis"`
}

type RateLimitConfig struct {
	DefaultPerMinute int     `mapstructure:"default_per_minute" validate:"min=1"`
	DefaultPerHour   int     `mapstructure:"default_per_hour" validate:"min=1"`
	GlobalRate       float64 `mapstructure:"global_rate" validate:"gt=0"`
	GlobalBurst      int     `mapstructure:"global_burst" validate:"min=1"`
}

type DispatcherConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Concurrency int           `mapstructure:"concurrency"`
}

type WebhookConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBase     time.Duration `mapstructure:"retry_base"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

type NotificationConfig struct {
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBase     time.Duration `mapstructure:"retry_base"`
}

type WorkersConfig struct {
	WebhookRetryInterval   time.Duration `mapstructure:"webhook_retry_interval"`
	SMSRetryInterval       time.Duration `mapstructure:"sms_retry_interval"`
	FailureMonitorInterval time.Duration `mapstructure:"failure_monitor_interval"`
	FailureThreshold       int           `mapstructure:"failure_threshold"`
	PrefetchInterval       time.Duration `mapstructure:"prefetch_interval"`
	BreakerThreshold       int           `mapstructure:"breaker_threshold"`
	BreakerCooldown        time.Duration `mapstructure:"breaker_cooldown"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "event_notify")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("cache.backend", "memory")

	v.SetDefault("rate_limit.default_per_minute", 60)
	v.SetDefault("rate_limit.default_per_hour", 1000)
	v.SetDefault("rate_limit.global_rate", 100)
	v.SetDefault("rate_limit.global_burst", 200)

	v.SetDefault("dispatcher.interval", "1m")
	v.SetDefault("dispatcher.concurrency", 10)

	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.retry_attempts", 5)
	v.SetDefault("webhook.retry_base", "2s")
	v.SetDefault("webhook.cache_ttl", "30m")

	v.SetDefault("notification.retry_attempts", 3)
	v.SetDefault("notification.retry_base", "1s")

	v.SetDefault("workers.webhook_retry_interval", "5m")
	v.SetDefault("workers.sms_retry_interval", "5m")
	v.SetDefault("workers.failure_monitor_interval", "10m")
	v.SetDefault("workers.failure_threshold", 5)
	v.SetDefault("workers.prefetch_interval", "5m")
	v.SetDefault("workers.breaker_threshold", 5)
	v.SetDefault("workers.breaker_cooldown", "2m")

	v.SetDefault("smtp.port", 587)
}

// Load reads config.yaml (from the working directory or ./config) and applies
// environment overrides. A missing file is not an error; the defaults cover
// every field.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment overrides, e.g. EVENTNOTIFY_DATABASE_PASSWORD.
	if err := envconfig.Process("eventnotify", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

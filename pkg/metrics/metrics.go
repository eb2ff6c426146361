package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all pipeline metrics
type Metrics struct {
	EventsProcessed    prometheus.Counter
	EventsRecurred     prometheus.Counter
	DispatchDuration   prometheus.Histogram
	WebhooksDelivered  prometheus.Counter
	WebhooksFailed     prometheus.Counter
	WebhookLatency     prometheus.Histogram
	SMSDelivered       prometheus.Counter
	SMSFailed          prometheus.Counter
	DeadLettered       *prometheus.CounterVec
	Redelivered        *prometheus.CounterVec
	RetryAttempts      *prometheus.CounterVec
	EscalationAlerts   prometheus.Counter
	RateLimitRejected  prometheus.Counter
	BreakerTransitions *prometheus.CounterVec
}

// New creates and registers all pipeline metrics on the default registerer.
func New(namespace string) *Metrics {
	return NewWith(namespace, prometheus.DefaultRegisterer)
}

// NewWith creates pipeline metrics on a caller-supplied registerer. Tests use
// a fresh registry to avoid duplicate registration.
func NewWith(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Total number of due events processed by the dispatcher",
		}),
		EventsRecurred: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_recurred_total",
			Help:      "Total number of next occurrences created for recurring events",
		}),
		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent processing a single due event",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		WebhooksDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_delivered_total",
			Help:      "Total number of successful webhook deliveries",
		}),
		WebhooksFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_failed_total",
			Help:      "Total number of webhook deliveries that exhausted inline retries",
		}),
		WebhookLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_delivery_duration_seconds",
			Help:      "Duration of webhook delivery attempts including inline retries",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		SMSDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sms_delivered_total",
			Help:      "Total number of successful SMS sends",
		}),
		SMSFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sms_failed_total",
			Help:      "Total number of SMS sends that exhausted retries",
		}),
		DeadLettered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_lettered_total",
			Help:      "Total number of entries written to the dead-letter store",
		}, []string{"kind"}),
		Redelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redelivered_total",
			Help:      "Total number of dead-letter entries successfully redelivered",
		}, []string{"kind"}),
		RetryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Total number of retry-worker redelivery attempts",
		}, []string{"kind"}),
		EscalationAlerts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalation_alerts_total",
			Help:      "Total number of chronic-failure alerts sent",
		}),
		RateLimitRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejected_total",
			Help:      "Total number of requests rejected by tenant rate limiting",
		}),
		BreakerTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions observed by retry workers",
		}, []string{"worker", "state"}),
	}
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	RateLimitExceededTotal *prometheus.CounterVec

	// Interaction model
	TogglesTotal       *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	FanoutDuration     *prometheus.HistogramVec

	// Background work
	StoriesExpiredTotal prometheus.Counter
	SearchIndexErrors   *prometheus.CounterVec

	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide collectors, registering them on first use.
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of in-flight HTTP requests",
				},
				[]string{"method"},
			),
			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Requests rejected by the rate limiter",
				},
				[]string{"path"},
			),
			TogglesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feedora_toggles_total",
					Help: "Toggle state transitions by relation and resulting action",
				},
				[]string{"relation", "action"},
			),
			NotificationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feedora_notifications_total",
					Help: "Notification fan-out outcomes per recipient",
				},
				[]string{"type", "outcome"},
			),
			FanoutDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feedora_fanout_duration_seconds",
					Help:    "Time spent materialising notifications for one event",
					Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
				},
				[]string{"type"},
			),
			StoriesExpiredTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "feedora_stories_expired_total",
					Help: "Stories removed by the expiry sweep",
				},
			),
			SearchIndexErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feedora_search_index_errors_total",
					Help: "Failed search index operations",
				},
				[]string{"operation"},
			),
			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Errors returned to clients by code",
				},
				[]string{"code"},
			),
		}
	})
	return instance
}

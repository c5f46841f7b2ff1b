package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secanalytics_gateway_requests_total",
			Help: "Total number of backend gateway requests",
		},
		[]string{"resource", "outcome"},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "secanalytics_gateway_request_duration_seconds",
			Help:    "Backend gateway request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secanalytics_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "to"},
	)

	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secanalytics_pages_fetched_total",
			Help: "Total number of list pages fetched by the aggregators",
		},
		[]string{"resource", "outcome"},
	)

	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secanalytics_overview_refreshes_total",
			Help: "Total number of overview refresh requests, partitioned by outcome",
		},
		[]string{"outcome"},
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "secanalytics_overview_refresh_duration_seconds",
			Help:    "Time taken by a complete overview refresh",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	OverviewItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "secanalytics_overview_items",
			Help: "Number of items in the latest overview snapshot",
		},
		[]string{"kind"},
	)

	RefreshHandlers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "secanalytics_overview_refresh_handlers",
			Help: "Number of registered overview refresh handlers",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secanalytics_notifications_total",
			Help: "Total number of user-facing notifications",
		},
		[]string{"kind"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secanalytics_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secanalytics_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secanalytics_cache_errors_total",
			Help: "Total number of cache errors",
		},
		[]string{"cache", "op"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "secanalytics_websocket_clients",
			Help: "Number of connected WebSocket clients",
		},
	)
)

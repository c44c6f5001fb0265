package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolution engine
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviehub_resolutions_total",
			Help: "Query resolutions by outcome",
		},
		[]string{"outcome"}, // "resolved", "not_found", "error"
	)

	EscalationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviehub_escalations_total",
			Help: "Unmet-demand escalations handed to the notifier",
		},
	)

	RetractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviehub_retractions_total",
			Help: "Delivery retraction attempts by outcome",
		},
		[]string{"outcome"}, // "retracted", "invalid_token", "error"
	)

	MatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moviehub_match_duration_seconds",
			Help:    "Time spent scanning the catalog for the best fuzzy match",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	CatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moviehub_catalog_candidates",
			Help: "Number of catalog titles scanned by the last match",
		},
	)

	// Catalog ingestion
	IngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviehub_ingestions_total",
			Help: "Catalog ingestions by result",
		},
		[]string{"result"}, // "created", "duplicate", "error"
	)

	// Access gate
	GateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviehub_gate_decisions_total",
			Help: "Membership gate decisions",
		},
		[]string{"decision"}, // "allow", "deny", "error", "rate_limited"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moviehub_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Escalation sinks
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviehub_notifications_total",
			Help: "Notifications sent by sink and result",
		},
		[]string{"sink", "result"},
	)

	EventClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moviehub_event_clients",
			Help: "Connected event feed clients",
		},
		[]string{"transport"}, // "tcp", "ws", "udp"
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviehub_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moviehub_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// Package metrics defines Prometheus instrumentation for the monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll loop metrics
var (
	// PollsTotal tracks poll iterations by result (live/offline/error)
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_polls_total",
			Help: "Total stream status polls by result",
		},
		[]string{"result"},
	)

	// PollDuration tracks stream-info request latency in seconds
	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stream_poll_duration_seconds",
			Help:    "Stream status poll duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// LiveStatus reports the last observed liveness (1 = live, 0 = offline)
	LiveStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_live_status",
			Help: "Last observed liveness of the monitored broadcaster",
		},
	)
)

// Notification metrics
var (
	// NotificationsTotal tracks notification deliveries by status (sent/failed)
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total desktop notifications by delivery status",
		},
		[]string{"status"},
	)
)

// Token metrics
var (
	// TokenRefreshesTotal tracks app token acquisitions by status (ok/error)
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refreshes_total",
			Help: "Total app access token acquisitions by status",
		},
		[]string{"status"},
	)
)

// Circuit breaker metrics
var (
	// CircuitBreakerStateChanges tracks breaker state transitions on the Helix client
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by new state",
		},
		[]string{"state"},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Report lifecycle metrics
	ReportsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coastwatch_reports_created_total",
			Help: "Total number of hazard reports submitted",
		},
		[]string{"event_type"},
	)

	ReportsVerified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coastwatch_reports_verified_total",
			Help: "Total number of reports verified by analysts",
		},
	)

	// Realtime metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coastwatch_realtime_connections_active",
			Help: "Current number of live realtime connections",
		},
	)

	BroadcastsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coastwatch_realtime_broadcasts_total",
			Help: "Total realtime messages delivered, by event",
		},
		[]string{"event"},
	)

	BroadcastsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coastwatch_realtime_broadcasts_dropped_total",
			Help: "Messages dropped because a connection's send queue was full",
		},
	)

	// Hotspot metrics
	HotspotComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coastwatch_hotspot_compute_duration_seconds",
			Help:    "Duration of hotspot clustering runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTP metrics
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coastwatch_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coastwatch_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)

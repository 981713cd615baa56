package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanish_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vanish_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vanish_rooms_created_total",
			Help: "Total rooms created",
		},
	)

	RoomsDestroyed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vanish_rooms_destroyed_total",
			Help: "Total rooms explicitly destroyed",
		},
	)

	Admissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanish_admissions_total",
			Help: "Total admission decisions",
		},
		[]string{"outcome"}, // admitted, re-entry, rejected-full, rejected-missing
	)

	MessagesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vanish_messages_posted_total",
			Help: "Total messages posted",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanish_events_published_total",
			Help: "Total broadcast events published",
		},
		[]string{"type"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanish_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)

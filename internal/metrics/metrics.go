package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatshare_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatshare_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Sharing metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatshare_sessions_active",
			Help: "Live collaborative sessions",
		},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatshare_sessions_created_total",
			Help: "Total collaborative sessions created",
		},
	)

	SessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatshare_sessions_ended_total",
			Help: "Total collaborative sessions ended",
		},
		[]string{"reason"}, // "owner", "chat_deleted" or "idle"
	)

	InvitesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatshare_invites_generated_total",
			Help: "Total invite links generated",
		},
		[]string{"role"},
	)

	Joins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatshare_joins_total",
			Help: "Total join attempts",
		},
		[]string{"result"}, // "ok", "not_found" or "rejected"
	)

	Leaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatshare_leaves_total",
			Help: "Total participants that left a session",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatshare_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"route"},
	)
)

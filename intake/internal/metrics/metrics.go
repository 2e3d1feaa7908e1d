package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submission metrics
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_intake_submissions_total",
			Help: "Total number of submissions received, by body encoding",
		},
		[]string{"encoding"},
	)

	PayloadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_intake_payload_errors_total",
			Help: "Submissions whose body could not be decoded and were degraded",
		},
		[]string{"encoding"},
	)

	// Forwarding metrics
	ForwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_intake_forwards_total",
			Help: "Submissions by forwarding outcome",
		},
		[]string{"outcome"},
	)

	ForwardDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_intake_forward_duration_seconds",
			Help:    "Duration of forwarding attempts to the ingestion service in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_intake_rate_limit_hits_total",
			Help: "Total number of submissions dropped by the rate limiter",
		},
	)

	RateLimitErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_intake_rate_limit_errors_total",
			Help: "Rate limiter backend failures (the submission is allowed)",
		},
	)

	// Page metrics
	PageRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_intake_page_requests_total",
			Help: "Page and asset requests by result",
		},
		[]string{"page", "status"},
	)
)

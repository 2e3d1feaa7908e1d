package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_ingestion_connections_total",
			Help: "Total number of accepted forwarding connections",
		},
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_ingestion_active_connections",
			Help: "Connections currently being read or persisted",
		},
	)

	AcceptErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_ingestion_accept_errors_total",
			Help: "Temporary accept errors the listener backed off from",
		},
	)

	ReadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_ingestion_read_errors_total",
			Help: "Connections whose payload could not be read, by reason",
		},
		[]string{"reason"},
	)

	// Payload metrics
	PayloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_ingestion_payloads_total",
			Help: "Payloads processed, by outcome",
		},
		[]string{"outcome"},
	)

	PayloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_ingestion_payload_bytes_total",
			Help: "Total bytes of payload data received",
		},
	)

	// Storage metrics
	InsertDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_ingestion_insert_duration_seconds",
			Help:    "Duration of sink inserts in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	// Notification metrics
	NotifyErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_ingestion_notify_errors_total",
			Help: "Stored-message notifications that could not be published",
		},
	)
)

package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/relay/common/middleware"
	"github.com/telhawk-systems/relay/ingestion/internal/handlers"
)

// NewRouter constructs the admin ServeMux: probes and Prometheus metrics.
// Payloads never arrive over HTTP; they come through the TCP listener.
func NewRouter(h *handlers.HealthHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /readyz", h.Ready)

	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}

package handlers

import (
	"net/http"

	"github.com/telhawk-systems/relay/common/httputil"
	"github.com/telhawk-systems/relay/ingestion/internal/service"
)

type StatsProvider interface {
	GetStats() service.Stats
	SinkName() string
}

// BrokerStatus reports whether the optional message broker is reachable.
// A nil BrokerStatus means no broker is configured.
type BrokerStatus interface {
	IsConnected() bool
}

type HealthHandler struct {
	stats  StatsProvider
	broker BrokerStatus
}

func NewHealthHandler(stats StatsProvider, broker BrokerStatus) *HealthHandler {
	return &HealthHandler{stats: stats, broker: broker}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "ingestion",
	})
}

// Ready always reports 200: a missing broker only disables notifications
// and insert failures are per-payload.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ready",
		"sink":   h.stats.SinkName(),
		"stats":  h.stats.GetStats(),
	}
	if h.broker != nil {
		resp["nats_connected"] = h.broker.IsConnected()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

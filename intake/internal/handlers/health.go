package handlers

import (
	"net/http"

	"github.com/telhawk-systems/relay/common/httputil"
	"github.com/telhawk-systems/relay/intake/internal/service"
)

type StatsProvider interface {
	GetStats() service.Stats
}

type HealthHandler struct {
	stats       StatsProvider
	forwardAddr string
}

func NewHealthHandler(stats StatsProvider, forwardAddr string) *HealthHandler {
	return &HealthHandler{stats: stats, forwardAddr: forwardAddr}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "intake",
	})
}

// Ready reports forwarding counters. Intake has no hard dependency at
// request time (forwarding failures are swallowed) so it is always ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"forward_addr": h.forwardAddr,
		"stats":        h.stats.GetStats(),
	})
}

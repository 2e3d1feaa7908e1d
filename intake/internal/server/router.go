package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/relay/common/logging"
	"github.com/telhawk-systems/relay/common/middleware"
	"github.com/telhawk-systems/relay/intake/internal/handlers"
)

// RouterConfig holds the handlers the intake routes are wired to.
type RouterConfig struct {
	Pages  *handlers.PageHandler
	Submit *handlers.SubmitHandler
	Health *handlers.HealthHandler
	Logger *logging.Logger
}

// NewRouter builds the intake HTTP surface. Every path or method not listed
// here gets the 404 page.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(AccessLog(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)

	r.NotFound(cfg.Pages.NotFound)
	r.MethodNotAllowed(cfg.Pages.NotFound)

	// Pages
	r.Get("/", cfg.Pages.Index)
	r.Get("/index.html", cfg.Pages.Index)
	r.Get("/message.html", cfg.Pages.Message)
	r.Get("/static/*", cfg.Pages.Static)

	// Submission
	r.Post("/submit", cfg.Submit.Submit)

	// Health endpoints
	r.Get("/healthz", cfg.Health.Health)
	r.Get("/readyz", cfg.Health.Ready)

	// Prometheus metrics
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

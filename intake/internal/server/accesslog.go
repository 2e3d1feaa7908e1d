package server

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/telhawk-systems/relay/common/logging"
)

// AccessLog logs one line per request at debug level, or info for
// submissions. Health and metrics probes are not logged.
func AccessLog(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/healthz", "/readyz", "/metrics":
				next.ServeHTTP(w, r)
				return
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			attrs := []any{
				logging.Method(r.Method),
				logging.Path(r.URL.Path),
				logging.Status(ww.Status()),
				logging.Remote(r.RemoteAddr),
				logging.Duration(time.Since(start)),
			}
			if r.URL.Path == "/submit" {
				logger.InfoContext(r.Context(), "request", attrs...)
			} else {
				logger.DebugContext(r.Context(), "request", attrs...)
			}
		})
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/telhawk-systems/relay/common/config"
	"github.com/telhawk-systems/relay/common/logging"
	intakeconfig "github.com/telhawk-systems/relay/intake/pkg/config"
	"github.com/telhawk-systems/relay/intake/internal/handlers"
	"github.com/telhawk-systems/relay/intake/internal/ratelimit"
	"github.com/telhawk-systems/relay/intake/internal/server"
	"github.com/telhawk-systems/relay/intake/internal/service"
	"github.com/telhawk-systems/relay/intake/internal/submission"
	"github.com/telhawk-systems/relay/intake/pkg/forwarder"
	"github.com/telhawk-systems/relay/intake/web"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	envFile := flag.String("env-file", ".env", "optional .env file loaded before reading the environment")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	cfg, err := intakeconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("intake"))
	logging.SetDefault(logger)

	slog.Info("Starting Intake service",
		slog.Int("port", cfg.Server.Port),
		slog.String("forward_addr", cfg.Forward.Addr),
		slog.String("forward_framing", cfg.Framing().String()),
		slog.Duration("forward_timeout", cfg.Forward.Timeout),
		slog.String("log_level", cfg.Logging.Level),
	)

	rateLimiter := newRateLimiter(cfg)
	defer rateLimiter.Close()

	var pages fs.FS = web.FS()
	if cfg.Pages.Dir != "" {
		pages = os.DirFS(cfg.Pages.Dir)
		slog.Info("Serving pages from directory", slog.String("dir", cfg.Pages.Dir))
	}

	fwd := forwarder.New(forwarder.Config{
		Addr:    cfg.Forward.Addr,
		Timeout: cfg.Forward.Timeout,
		Framing: cfg.Framing(),
	})

	submitService := service.NewSubmitService(fwd, rateLimiter, logger)

	router := server.NewRouter(server.RouterConfig{
		Pages:  handlers.NewPageHandler(pages, logger),
		Submit: handlers.NewSubmitHandler(submission.NewDecoder(cfg.Submission.MaxBodyBytes), submitService),
		Health: handlers.NewHealthHandler(submitService, fwd.Addr()),
		Logger: logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Intake service listening", logging.Addr(srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout+cfg.Forward.Timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("Server stopped")
}

func newRateLimiter(cfg *intakeconfig.Config) ratelimit.RateLimiter {
	rl := cfg.RateLimit
	switch rl.Backend {
	case intakeconfig.RateLimitRedis:
		if !cfg.Redis.Enabled {
			slog.Warn("Redis disabled - rate limiting not available")
			return &ratelimit.NoOpRateLimiter{}
		}
		limiter, err := ratelimit.NewRedisRateLimiter(cfg.Redis.URL, rl.Requests, rl.Window)
		if err != nil {
			slog.Warn("Failed to initialize Redis rate limiter, continuing without rate limiting",
				logging.Error(err))
			return &ratelimit.NoOpRateLimiter{}
		}
		slog.Info("Rate limiting enabled",
			slog.String("backend", rl.Backend),
			slog.Int("requests", rl.Requests),
			slog.Duration("window", rl.Window),
		)
		return limiter
	case intakeconfig.RateLimitMemory:
		slog.Info("Rate limiting enabled",
			slog.String("backend", rl.Backend),
			slog.Int("requests", rl.Requests),
			slog.Duration("window", rl.Window),
			slog.Int("burst", rl.Burst),
		)
		return ratelimit.NewMemoryRateLimiter(rl.Requests, rl.Window, rl.Burst)
	default:
		slog.Info("Rate limiting disabled in configuration")
		return &ratelimit.NoOpRateLimiter{}
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/telhawk-systems/relay/common/config"
	"github.com/telhawk-systems/relay/common/logging"
	"github.com/telhawk-systems/relay/common/messaging"
	natsclient "github.com/telhawk-systems/relay/common/messaging/nats"
	ingestionconfig "github.com/telhawk-systems/relay/ingestion/pkg/config"
	"github.com/telhawk-systems/relay/ingestion/internal/handlers"
	"github.com/telhawk-systems/relay/ingestion/internal/listener"
	"github.com/telhawk-systems/relay/ingestion/internal/server"
	"github.com/telhawk-systems/relay/ingestion/internal/service"
	"github.com/telhawk-systems/relay/ingestion/internal/storage"
)

const storageOpenTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	envFile := flag.String("env-file", ".env", "optional .env file loaded before reading the environment")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	cfg, err := ingestionconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("ingestion"))
	logging.SetDefault(logger)

	slog.Info("Starting Ingestion service",
		slog.String("listen_addr", cfg.Listener.Addr),
		slog.Int("admin_port", cfg.Server.Port),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.Int("max_connections", cfg.Listener.MaxConnections),
		slog.String("log_level", cfg.Logging.Level),
	)

	openCtx, openCancel := context.WithTimeout(context.Background(), storageOpenTimeout)
	sink, err := storage.Open(openCtx, cfg.Storage)
	openCancel()
	if err != nil {
		log.Fatalf("Failed to open storage backend %q: %v", cfg.Storage.Backend, err)
	}
	slog.Info("Storage backend ready", logging.Sink(sink.Name()))

	var publisher messaging.Publisher = messaging.NoopPublisher{}
	var broker handlers.BrokerStatus
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Name = "relay-ingestion"
		natsCfg.MaxReconnects = cfg.NATS.MaxReconnects
		if cfg.NATS.ReconnectWait > 0 {
			natsCfg.ReconnectWait = cfg.NATS.ReconnectWait
		}
		natsCfg.Logger = logger.Logger

		client, err := natsclient.NewClient(natsCfg)
		if err != nil {
			slog.Warn("Failed to connect to NATS, stored message notifications disabled",
				logging.Error(err))
		} else {
			slog.Info("Connected to NATS", logging.Addr(cfg.NATS.URL))
			publisher = client
			broker = client
		}
	}

	ingestor := service.NewIngestor(sink,
		service.WithPublisher(publisher),
		service.WithInsertTimeout(cfg.Storage.InsertTimeout),
		service.WithLogger(logger),
	)

	tcp := listener.New(listener.Config{
		Addr:            cfg.Listener.Addr,
		IdleTimeout:     cfg.Listener.IdleTimeout,
		MaxPayloadBytes: cfg.Listener.MaxPayloadBytes,
		MaxConnections:  cfg.Listener.MaxConnections,
	}, ingestor, logger)

	admin := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.NewRouter(handlers.NewHealthHandler(ingestor, broker)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := tcp.ListenAndServe(); err != nil && !errors.Is(err, listener.ErrServerClosed) {
			log.Fatalf("Listener error: %v", err)
		}
	}()

	go func() {
		slog.Info("Admin server listening", logging.Addr(admin.Addr))
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Admin server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down ingestion service...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Listener.IdleTimeout+cfg.Storage.InsertTimeout)
	defer shutdownCancel()

	if err := tcp.Shutdown(shutdownCtx); err != nil {
		slog.Error("Listener did not drain in time", logging.Error(err))
	}
	if err := admin.Shutdown(shutdownCtx); err != nil {
		slog.Error("Admin server forced to shutdown", logging.Error(err))
	}
	if err := publisher.Close(); err != nil {
		slog.Error("Failed to close NATS connection", logging.Error(err))
	}
	if err := sink.Close(shutdownCtx); err != nil {
		slog.Error("Failed to close storage backend", logging.Error(err))
	}

	slog.Info("Ingestion service stopped")
}

// Package storage holds the persistence backends records are inserted into.
// Every backend stores the same shape: username, message and the
// received_at timestamp stamped by the ingestion service.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/telhawk-systems/relay/common/models"
)

// Backend names accepted in configuration.
const (
	BackendMongo      = "mongo"
	BackendOpenSearch = "opensearch"
	BackendPostgres   = "postgres"
	BackendMemory     = "memory"
)

// Sink inserts stamped records. Implementations must be safe for concurrent
// use: the listener calls Insert from one goroutine per connection.
type Sink interface {
	Insert(ctx context.Context, rec models.Record) error
	Name() string
	Close(ctx context.Context) error
}

// Config selects and configures a backend.
type Config struct {
	Backend       string           `mapstructure:"backend" yaml:"backend"`
	InsertTimeout time.Duration    `mapstructure:"insert_timeout" yaml:"insert_timeout"`
	Mongo         MongoConfig      `mapstructure:"mongo" yaml:"mongo"`
	OpenSearch    OpenSearchConfig `mapstructure:"opensearch" yaml:"opensearch"`
	Postgres      PostgresConfig   `mapstructure:"postgres" yaml:"postgres"`
}

// Open connects the configured backend. Backend-specific setup (index
// templates, schema migrations) runs here so the returned Sink is ready.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	switch cfg.Backend {
	case BackendMongo, "":
		sink, err := NewMongoSink(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := sink.Ping(ctx); err != nil {
			slog.Warn("MongoDB not reachable yet, inserts will fail until it is",
				slog.String("error", err.Error()))
		}
		return sink, nil
	case BackendOpenSearch:
		sink, err := NewOpenSearchSink(cfg.OpenSearch)
		if err != nil {
			return nil, err
		}
		if err := sink.Initialize(ctx); err != nil {
			slog.Warn("OpenSearch initialization failed, documents will use dynamic mappings",
				slog.String("error", err.Error()))
		}
		return sink, nil
	case BackendPostgres:
		if err := MigratePostgres(cfg.Postgres.DSN); err != nil {
			return nil, err
		}
		return NewPostgresSink(ctx, cfg.Postgres)
	case BackendMemory:
		return NewMemorySink(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (supported: mongo, opensearch, postgres, memory)", cfg.Backend)
	}
}

// requireStamped guards against inserting a record the ingestion service
// has not stamped.
func requireStamped(rec models.Record) error {
	if !rec.Stamped() {
		return fmt.Errorf("record has no received_at")
	}
	return nil
}

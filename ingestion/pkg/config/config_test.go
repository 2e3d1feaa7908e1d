package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/relay/ingestion/internal/storage"
)

func TestLoad_WithDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, ":5000", cfg.Listener.Addr)
	assert.Equal(t, 10*time.Second, cfg.Listener.IdleTimeout)
	assert.Equal(t, 1048576, cfg.Listener.MaxPayloadBytes)
	assert.Equal(t, 64, cfg.Listener.MaxConnections)

	assert.Equal(t, storage.BackendMongo, cfg.Storage.Backend)
	assert.Equal(t, 5*time.Second, cfg.Storage.InsertTimeout)
	assert.Equal(t, "mongodb://mongo:27017/", cfg.Storage.Mongo.URI)
	assert.Equal(t, "chat_db", cfg.Storage.Mongo.Database)
	assert.Equal(t, "messages", cfg.Storage.Mongo.Collection)
	assert.Equal(t, 10*time.Second, cfg.Storage.Mongo.ConnectTimeout)
	assert.Equal(t, "relay", cfg.Storage.OpenSearch.IndexPrefix)

	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, -1, cfg.NATS.MaxReconnects)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingestion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listener:
  addr: 0.0.0.0:6000
  max_connections: 8
storage:
  backend: postgres
  postgres:
    dsn: postgres://u:p@db:5432/relay
nats:
  enabled: true
  url: nats://nats:4222
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:6000", cfg.Listener.Addr)
	assert.Equal(t, 8, cfg.Listener.MaxConnections)
	assert.Equal(t, storage.BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "postgres://u:p@db:5432/relay", cfg.Storage.Postgres.DSN)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("INGESTION_STORAGE_BACKEND", "memory")
	t.Setenv("INGESTION_LISTENER_IDLE_TIMEOUT", "2s")
	t.Setenv("INGESTION_STORAGE_MONGO_URI", "mongodb://localhost:27017/")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, storage.BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 2*time.Second, cfg.Listener.IdleTimeout)
	assert.Equal(t, "mongodb://localhost:27017/", cfg.Storage.Mongo.URI)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("INGESTION_STORAGE_BACKEND", "cassandra")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Listener: ListenerConfig{Addr: ":5000", IdleTimeout: time.Second, MaxPayloadBytes: 1024, MaxConnections: 4},
			Storage:  storage.Config{Backend: storage.BackendMemory, InsertTimeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no addr", mutate: func(c *Config) { c.Listener.Addr = "" }, wantErr: "listener.addr"},
		{name: "no idle timeout", mutate: func(c *Config) { c.Listener.IdleTimeout = 0 }, wantErr: "idle_timeout"},
		{name: "no payload limit", mutate: func(c *Config) { c.Listener.MaxPayloadBytes = 0 }, wantErr: "max_payload_bytes"},
		{name: "no connections", mutate: func(c *Config) { c.Listener.MaxConnections = 0 }, wantErr: "max_connections"},
		{name: "no insert timeout", mutate: func(c *Config) { c.Storage.InsertTimeout = 0 }, wantErr: "insert_timeout"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Storage.Backend = storage.BackendMongo }, wantErr: "mongo.uri"},
		{name: "opensearch without url", mutate: func(c *Config) { c.Storage.Backend = storage.BackendOpenSearch }, wantErr: "opensearch.url"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Backend = storage.BackendPostgres }, wantErr: "postgres.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

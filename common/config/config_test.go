package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	NATS    NATSConfig    `mapstructure:"nats"`
}

func TestRead_DefaultsWhenNoFile(t *testing.T) {
	v := NewViper(Source{SearchPaths: []string{t.TempDir()}, EnvPrefix: "RELAYTEST"})
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("logging.level", "info")

	var cfg sample
	require.NoError(t, Read(v, &cfg))

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":3000", cfg.Server.Addr())
}

func TestRead_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 4000
logging:
  level: debug
nats:
  enabled: true
  reconnect_wait: 3s
`), 0o600))

	t.Setenv("RELAYTEST_LOGGING_LEVEL", "warn")

	v := NewViper(Source{Path: path, EnvPrefix: "RELAYTEST"})
	v.SetDefault("server.port", 3000)
	v.SetDefault("logging.level", "info")
	v.SetDefault("nats.enabled", false)

	var cfg sample
	require.NoError(t, Read(v, &cfg))

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level, "environment must override the file")
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, 3*time.Second, cfg.NATS.ReconnectWait)
}

func TestRead_ExplicitMissingFileFails(t *testing.T) {
	v := NewViper(Source{Path: filepath.Join(t.TempDir(), "missing.yaml")})
	var cfg sample
	assert.Error(t, Read(v, &cfg))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("RELAYTEST_DOTENV_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("RELAYTEST_DOTENV_VALUE") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env"), path))
	assert.Equal(t, "from-file", os.Getenv("RELAYTEST_DOTENV_VALUE"))
}

func TestLoadDotEnv_NothingToLoad(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

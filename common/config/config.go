// Package config holds configuration sections and loading helpers shared by
// the relay services. Each service owns its top-level Config struct and its
// defaults; this package only standardizes how files, .env and environment
// variables are layered.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// Addr returns the listen address for the configured port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	URL     string `mapstructure:"url" yaml:"url"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// NATSConfig holds NATS message broker configuration.
type NATSConfig struct {
	URL           string        `mapstructure:"url" yaml:"url"`
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxReconnects int           `mapstructure:"max_reconnects" yaml:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait" yaml:"reconnect_wait"`
}

// Source describes where a service looks for its configuration.
type Source struct {
	// Path is an explicit config file. When empty, "config.yaml" is searched
	// for in SearchPaths.
	Path        string
	SearchPaths []string
	// EnvPrefix is prepended to environment variable names (INTAKE_SERVER_PORT).
	EnvPrefix string
}

// NewViper returns a viper instance wired to src. Callers set their defaults
// on it before calling Read.
func NewViper(src Source) *viper.Viper {
	v := viper.New()

	if src.Path != "" {
		v.SetConfigFile(src.Path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range src.SearchPaths {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(src.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Read loads the config file (a missing file in the search paths is not an
// error) and unmarshals the merged result into out.
func Read(v *viper.Viper, out any) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// LoadDotEnv loads environment variables from the given .env files (".env"
// when none are given). Files that do not exist are skipped; variables that
// are already set are left untouched.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", p, err)
		}
		existing = append(existing, p)
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// Package config holds relayctl's own settings: where the relay services
// live. It is unrelated to the service configuration printed by
// `relayctl config`.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	IntakeURL     string        `yaml:"intake_url"`
	IngestionAddr string        `yaml:"ingestion_addr"`
	Framing       string        `yaml:"framing"`
	Encoding      string        `yaml:"encoding"`
	Timeout       time.Duration `yaml:"timeout"`
	path          string
}

func Default() *Config {
	return &Config{
		IntakeURL:     "http://localhost:3000",
		IngestionAddr: "127.0.0.1:5000",
		Framing:       "close",
		Encoding:      "form",
		Timeout:       3 * time.Second,
	}
}

// DefaultPath returns ~/.relayctl/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".relayctl", "config.yaml"), nil
}

// Load reads cfgFile over the defaults. A missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = p
	}

	cfg := Default()
	cfg.path = cfgFile

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", cfgFile, err)
	}

	return cfg, nil
}

func (c *Config) Path() string { return c.path }

func (c *Config) Save() error {
	if c.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = p
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

package config

import (
	"fmt"
	"time"

	common "github.com/telhawk-systems/relay/common/config"
	"github.com/telhawk-systems/relay/common/wire"
)

// Rate limiter backends.
const (
	RateLimitNone   = "none"
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

type Config struct {
	Server     common.ServerConfig  `mapstructure:"server" yaml:"server"`
	Forward    ForwardConfig        `mapstructure:"forward" yaml:"forward"`
	Submission SubmissionConfig     `mapstructure:"submission" yaml:"submission"`
	Pages      PagesConfig          `mapstructure:"pages" yaml:"pages"`
	RateLimit  RateLimitConfig      `mapstructure:"ratelimit" yaml:"ratelimit"`
	Redis      common.RedisConfig   `mapstructure:"redis" yaml:"redis"`
	Logging    common.LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ForwardConfig points the intake service at the ingestion listener.
type ForwardConfig struct {
	Addr    string        `mapstructure:"addr" yaml:"addr"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Framing string        `mapstructure:"framing" yaml:"framing"`
}

type SubmissionConfig struct {
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// PagesConfig selects where templates and static assets come from. An empty
// Dir means the embedded defaults.
type PagesConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type RateLimitConfig struct {
	Backend  string        `mapstructure:"backend" yaml:"backend"`
	Requests int           `mapstructure:"requests" yaml:"requests"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
	Burst    int           `mapstructure:"burst" yaml:"burst"`
}

// Load reads configuration from defaults, an optional YAML file and
// INTAKE_* environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	v := common.NewViper(common.Source{
		Path:        configPath,
		SearchPaths: []string{".", "/etc/relay/intake"},
		EnvPrefix:   "INTAKE",
	})

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("forward.addr", "127.0.0.1:5000")
	v.SetDefault("forward.timeout", "3s")
	v.SetDefault("forward.framing", wire.FramingClose.String())
	v.SetDefault("submission.max_body_bytes", 1048576)
	v.SetDefault("pages.dir", "")
	v.SetDefault("ratelimit.backend", RateLimitNone)
	v.SetDefault("ratelimit.requests", 60)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	var cfg Config
	if err := common.Read(v, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Forward.Addr == "" {
		return fmt.Errorf("forward.addr is required")
	}
	if c.Forward.Timeout <= 0 {
		return fmt.Errorf("forward.timeout must be positive, got %s", c.Forward.Timeout)
	}
	if _, err := wire.ParseFraming(c.Forward.Framing); err != nil {
		return fmt.Errorf("forward.framing: %w", err)
	}
	if c.Submission.MaxBodyBytes <= 0 {
		return fmt.Errorf("submission.max_body_bytes must be positive, got %d", c.Submission.MaxBodyBytes)
	}

	switch c.RateLimit.Backend {
	case "", RateLimitNone:
	case RateLimitMemory, RateLimitRedis:
		if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
			return fmt.Errorf("ratelimit.requests and ratelimit.window must be positive")
		}
	default:
		return fmt.Errorf("unknown ratelimit.backend %q (supported: none, memory, redis)", c.RateLimit.Backend)
	}
	return nil
}

// Framing returns the parsed forward framing. Validate has already checked it.
func (c *Config) Framing() wire.Framing {
	f, _ := wire.ParseFraming(c.Forward.Framing)
	return f
}

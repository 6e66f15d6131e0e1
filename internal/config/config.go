package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"deploytracker/internal/validators"
)

// DefaultPath is read when no --config flag is given. A missing file is
// not an error; defaults and environment variables still apply.
const DefaultPath = "config.yaml"

type Config struct {
	App      AppConfig      `yaml:"app"`
	Session  SessionConfig  `yaml:"session"`
	Seed     SeedConfig     `yaml:"seed"`
	Security SecurityConfig `yaml:"security"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type AppConfig struct {
	Env  string `yaml:"env"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	Secure        bool          `yaml:"secure_cookie"`
}

// SeedConfig selects where a new session's initial deployments come from.
// An empty Path means the built-in seed rows.
type SeedConfig struct {
	Path string `yaml:"path"`
}

type SecurityConfig struct {
	AllowedIPs []string `yaml:"allowed_ips"` // empty = allow all
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() *Config {
	return &Config{
		App: AppConfig{
			Env:  "development",
			Host: "",
			Port: 8080,
		},
		Session: SessionConfig{
			IdleTimeout:   24 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}

	// Load from YAML if exists
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Override with environment variables
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.App.Env = env
	}
	if host := os.Getenv("APP_HOST"); host != "" {
		cfg.App.Host = host
	}
	if port := os.Getenv("APP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.App.Port = p
		}
	}
	if idle := os.Getenv("SESSION_IDLE_TIMEOUT"); idle != "" {
		if d, err := time.ParseDuration(idle); err == nil {
			cfg.Session.IdleTimeout = d
		}
	}
	if sweep := os.Getenv("SESSION_SWEEP_INTERVAL"); sweep != "" {
		if d, err := time.ParseDuration(sweep); err == nil {
			cfg.Session.SweepInterval = d
		}
	}
	if secure := os.Getenv("SESSION_SECURE_COOKIE"); secure == "true" {
		cfg.Session.Secure = true
	}
	if seedPath := os.Getenv("SEED_PATH"); seedPath != "" {
		cfg.Seed.Path = seedPath
	}
	if ips := os.Getenv("ALLOWED_IPS"); ips != "" {
		cfg.Security.AllowedIPs = splitList(ips)
	}
	if metrics := os.Getenv("METRICS_ENABLED"); metrics != "" {
		if v, err := strconv.ParseBool(metrics); err == nil {
			cfg.Metrics.Enabled = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port out of range: %d", c.App.Port)
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session.idle_timeout must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be positive")
	}
	for _, entry := range c.Security.AllowedIPs {
		if err := validators.ValidateAllowedIP(entry); err != nil {
			return fmt.Errorf("security.allowed_ips: %w", err)
		}
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

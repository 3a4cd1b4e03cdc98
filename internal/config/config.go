// Package config provides configuration management for the Gatherly
// backend: environment variables first, with optional YAML override
// files and hot reloading in development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment names the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the full runtime configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	// TableName is the single DynamoDB table everything lives in.
	TableName string `yaml:"table_name"`

	// Server settings.
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds each store call.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// CASMaxAttempts bounds optimistic-write retries per operation.
	CASMaxAttempts int `yaml:"cas_max_attempts"`

	// SyncParallelism bounds concurrent per-group pointer writes.
	SyncParallelism int `yaml:"sync_parallelism"`

	Features Features `yaml:"features"`
}

// Features toggles optional behavior.
type Features struct {
	EnableMetrics    bool `yaml:"enable_metrics"`
	EnableTracing    bool `yaml:"enable_tracing"`
	EnablePointerLag bool `yaml:"enable_pointer_lag"` // log slow pointer syncs
}

// Load reads configuration from the environment, then applies the
// optional CONFIG_FILE YAML overlay on top.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:     Environment(envOr("ENVIRONMENT", string(Development))),
		TableName:       os.Getenv("TABLE_NAME"),
		Port:            envIntOr("PORT", 8080),
		ShutdownTimeout: envDurationOr("SHUTDOWN_TIMEOUT", 15*time.Second),
		RequestTimeout:  envDurationOr("REQUEST_TIMEOUT", 5*time.Second),
		CASMaxAttempts:  envIntOr("CAS_MAX_ATTEMPTS", 4),
		SyncParallelism: envIntOr("SYNC_PARALLELISM", 4),
		Features: Features{
			EnableMetrics:    os.Getenv("ENABLE_METRICS") != "false", // default true
			EnableTracing:    os.Getenv("ENABLE_TRACING") == "true",
			EnablePointerLag: os.Getenv("ENABLE_POINTER_LAG") == "true",
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.TableName == "" {
		return fmt.Errorf("TABLE_NAME is required")
	}
	if c.CASMaxAttempts < 1 {
		return fmt.Errorf("cas_max_attempts must be at least 1, got %d", c.CASMaxAttempts)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	return nil
}

// IsDevelopment reports whether we run in development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envIntOr(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

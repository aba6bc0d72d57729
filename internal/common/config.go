// Package common provides shared utilities for the live-score watcher.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the live-score watcher.
type Config struct {
	Environment string        `toml:"environment"`
	Matches     []string      `toml:"matches"`
	Server      ServerConfig  `toml:"server"`
	Queue       QueueConfig   `toml:"queue"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration for the operational surface.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// QueueConfig holds the worker queue's construction-time options.
type QueueConfig struct {
	Concurrency  int         `toml:"concurrency"`
	PollInterval string      `toml:"poll_interval"`
	Retry        RetryConfig `toml:"retry"`
}

// GetPollInterval parses PollInterval, defaulting to 100ms per spec.
func (c *QueueConfig) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

// GetConcurrency returns Concurrency, defaulting to 4 per spec.
func (c *QueueConfig) GetConcurrency() int {
	if c.Concurrency <= 0 {
		return 4
	}
	return c.Concurrency
}

// RetryConfig holds default retry/backoff parameters applied to poll jobs.
type RetryConfig struct {
	MaxRetries  int     `toml:"max_retries"`
	BackoffBase float64 `toml:"backoff_base"`
	BackoffMin  string  `toml:"backoff_min"`
	BackoffMax  string  `toml:"backoff_max"`
	Jitter      float64 `toml:"jitter"`
}

// GetBackoffMin parses BackoffMin, defaulting to 500ms.
func (c *RetryConfig) GetBackoffMin() time.Duration {
	d, err := time.ParseDuration(c.BackoffMin)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// GetBackoffMax parses BackoffMax, defaulting to 60s.
func (c *RetryConfig) GetBackoffMax() time.Duration {
	d, err := time.ParseDuration(c.BackoffMax)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// GetBackoffBase returns BackoffBase, defaulting to 1.6.
func (c *RetryConfig) GetBackoffBase() float64 {
	if c.BackoffBase <= 1.0 {
		return 1.6
	}
	return c.BackoffBase
}

// GetMaxRetries returns MaxRetries, defaulting to 3.
func (c *RetryConfig) GetMaxRetries() int {
	if c.MaxRetries <= 0 {
		return 3
	}
	return c.MaxRetries
}

// GetJitter returns Jitter, defaulting to 0.15, clamped to [0, 1].
func (c *RetryConfig) GetJitter() float64 {
	j := c.Jitter
	if j <= 0 {
		j = 0.15
	}
	if j > 1 {
		j = 1
	}
	return j
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Matches:     []string{"M-1001", "M-1002", "M-1003"},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Queue: QueueConfig{
			Concurrency:  4,
			PollInterval: "100ms",
			Retry: RetryConfig{
				MaxRetries:  3,
				BackoffBase: 1.6,
				BackoffMin:  "500ms",
				BackoffMax:  "60s",
				Jitter:      0.15,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from TOML files with environment overrides.
// Later paths override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies PIRATE_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PIRATE_ENV"); env != "" {
		config.Environment = env
	}
	if host := os.Getenv("PIRATE_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("PIRATE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("PIRATE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if concurrency := os.Getenv("PIRATE_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil && n > 0 {
			config.Queue.Concurrency = n
		}
	}
	if matches := os.Getenv("PIRATE_MATCHES"); matches != "" {
		ids := strings.Split(matches, ",")
		cleaned := make([]string, 0, len(ids))
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id != "" {
				cleaned = append(cleaned, id)
			}
		}
		if len(cleaned) > 0 {
			config.Matches = cleaned
		}
	}
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

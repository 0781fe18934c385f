// Package config loads application configuration from a YAML file with
// environment variable overrides. Secrets (database URL, API keys) are
// expected from the environment in production; the YAML file carries the
// tunables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Instantly InstantlyConfig `yaml:"instantly"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Workers   WorkersConfig   `yaml:"workers"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds optional Redis settings. An empty Addr disables Redis;
// the sweep lock falls back to Postgres advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// InstantlyConfig holds sending-platform API settings.
type InstantlyConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// LifecycleConfig holds the retention windows, in days.
type LifecycleConfig struct {
	RetentionDays   int `yaml:"retention_days"`
	BouncePurgeDays int `yaml:"bounce_purge_days"`
}

// Retention returns the completed-test retention window.
func (c LifecycleConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// BounceMaxAge returns the bounced-send purge window.
func (c LifecycleConfig) BounceMaxAge() time.Duration {
	return time.Duration(c.BouncePurgeDays) * 24 * time.Hour
}

// WorkersConfig holds background worker intervals, in seconds.
type WorkersConfig struct {
	EvaluatorIntervalSeconds int `yaml:"evaluator_interval_seconds"`
	SweepIntervalSeconds     int `yaml:"sweep_interval_seconds"`
	SyncIntervalSeconds      int `yaml:"sync_interval_seconds"`
}

// EvaluatorInterval returns the test evaluator polling interval.
func (c WorkersConfig) EvaluatorInterval() time.Duration {
	return time.Duration(c.EvaluatorIntervalSeconds) * time.Second
}

// SweepInterval returns the lifecycle sweep interval.
func (c WorkersConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// SyncInterval returns the engagement sync interval.
func (c WorkersConfig) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

// APIKey is one configured API credential.
type APIKey struct {
	Token string `yaml:"token"`
	Name  string `yaml:"name"`
	Role  string `yaml:"role"`
}

// AuthConfig holds API key authorization settings.
type AuthConfig struct {
	Keys []APIKey `yaml:"keys"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads .env (if present), reads the YAML file, then applies
// environment overrides on top.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		cfg.applyDefaults()
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("INSTANTLY_API_KEY"); v != "" {
		cfg.Instantly.APIKey = v
	}
	if v := os.Getenv("INSTANTLY_BASE_URL"); v != "" {
		cfg.Instantly.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30
	}
	if c.Lifecycle.RetentionDays == 0 {
		c.Lifecycle.RetentionDays = 90
	}
	if c.Lifecycle.BouncePurgeDays == 0 {
		c.Lifecycle.BouncePurgeDays = 30
	}
	if c.Workers.EvaluatorIntervalSeconds == 0 {
		c.Workers.EvaluatorIntervalSeconds = 300
	}
	if c.Workers.SweepIntervalSeconds == 0 {
		c.Workers.SweepIntervalSeconds = 3600
	}
	if c.Workers.SyncIntervalSeconds == 0 {
		c.Workers.SyncIntervalSeconds = 600
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

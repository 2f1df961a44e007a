package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Purge     PurgeConfig     `yaml:"purge"`
	Notify    NotifyConfig    `yaml:"notify"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	DemoMode  bool            `yaml:"demo_mode"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
}

// PurgeConfig contains the listing expiration thresholds. All values
// are whole days and compared inclusively (>=).
type PurgeConfig struct {
	UnactivatedExpirationDays      int    `yaml:"unactivated_listings_expiration"`
	ActivatedExpirationDays        int    `yaml:"activated_listings_expiration"`
	ArchivedExpirationDays         int    `yaml:"archived_listings_expiration"`
	ManuallyArchivedExpirationDays int    `yaml:"manually_archived_listings_expiration"`
	ReminderDaysEarlier            int    `yaml:"reminder_days_earlier"`
	ReminderIntervalDays           int    `yaml:"reminder_interval_days"`
	MaxDeletionCount               int    `yaml:"max_deletion_count"` // safety limit per run
	DailyRunEnabled                bool   `yaml:"daily_run_enabled"`
	DailyRunTime                   string `yaml:"daily_run_time"`
}

// NotifyConfig contains notification delivery settings
type NotifyConfig struct {
	Enabled         bool   `yaml:"enabled"`
	GatewayURL      string `yaml:"gateway_url"` // mail/SMS gateway webhook endpoint
	GatewayAPIKey   string `yaml:"gateway_api_key"`
	FromAddress     string `yaml:"from_address"`
	SendsPerHour    int    `yaml:"sends_per_hour"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	PollIntervalSec int    `yaml:"poll_interval_seconds"`
}

// RateLimitConfig contains rate limiting settings for write endpoints
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Purge: PurgeConfig{
			UnactivatedExpirationDays:      30,
			ActivatedExpirationDays:        30,
			ArchivedExpirationDays:         7,
			ManuallyArchivedExpirationDays: 90,
			ReminderDaysEarlier:            7,
			ReminderIntervalDays:           2,
			MaxDeletionCount:               10000,
			DailyRunEnabled:                false,
			DailyRunTime:                   "03:00",
		},
		Notify: NotifyConfig{
			Enabled:         true,
			FromAddress:     "noreply@classifieds.local",
			SendsPerHour:    500,
			TimeoutSeconds:  10,
			PollIntervalSec: 30,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			RequestsPerHour:   300,
			RequestsPerDay:    2000,
		},
		Logging: LoggingConfig{
			Level:       "info",
			LogRequests: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	// Read file
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// GetTimeout returns the gateway timeout as a duration
func (c *NotifyConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetPollInterval returns the outbox poll interval as a duration
func (c *NotifyConfig) GetPollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

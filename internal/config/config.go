package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/soltixdb/weathermetrics/internal/utils"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Query   QueryConfig   `mapstructure:"query"`
	Storage StorageConfig `mapstructure:"storage"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`          // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort     int           `mapstructure:"http_port"`     // HTTP server port
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // Max time to read a request
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // Max time to write a response
	BodyLimit    int           `mapstructure:"body_limit"`    // Max request body size in bytes
}

// QueryConfig holds statistics query settings
type QueryConfig struct {
	// LookbackDays is the default window width used when startDate is omitted
	LookbackDays int `mapstructure:"lookback_days"`
	// Timezone applied to date-times sent without an offset
	// (e.g., "Asia/Tokyo", "+09:00", "UTC")
	Timezone string `mapstructure:"timezone"`
}

// StorageConfig represents reading store configuration
type StorageConfig struct {
	Type     string         `mapstructure:"type"` // memory (default), redis, postgres
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig represents the Redis reading store settings
type RedisConfig struct {
	URL       string `mapstructure:"url"`        // redis://localhost:6379/0
	Password  string `mapstructure:"password"`   // Optional, overrides the URL password
	DB        int    `mapstructure:"db"`         // Database number, used when URL has none
	KeyPrefix string `mapstructure:"key_prefix"` // Prefix of every key (default: "weather")
	Compress  bool   `mapstructure:"compress"`   // Snappy-compress reading blobs
}

// PostgresConfig represents the PostgreSQL reading store settings
type PostgresConfig struct {
	DSN          string        `mapstructure:"dsn"`
	TablePrefix  string        `mapstructure:"table_prefix"` // Prefix for weather_reading/weather_metric
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_lifetime"`
}

// QueueConfig represents reading event queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: none (default), nats, redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication
	Subject  string `mapstructure:"subject"`  // Subject/topic for reading events

	// ConsumerGroup names the durable consumer / consumer group used when
	// subscribing (default: "weather-events")
	ConsumerGroup string `mapstructure:"consumer_group"`

	// NATS-specific options
	NATSStream string `mapstructure:"nats_stream"` // JetStream stream name (default: "WEATHER")

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`     // Redis database number (default: 0)
	RedisStream string `mapstructure:"redis_stream"` // Redis stream prefix (default: "weather")
	RedisMaxLen int64  `mapstructure:"redis_maxlen"` // Approximate stream cap, 0 keeps everything

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"` // Kafka broker addresses
}

// MetricsConfig represents Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Query.Validate(); err != nil {
		return fmt.Errorf("query config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("read_timeout and write_timeout must not be negative")
	}

	if c.BodyLimit < 0 {
		return fmt.Errorf("body_limit must not be negative")
	}

	return nil
}

// Validate validates query configuration
func (c *QueryConfig) Validate() error {
	if c.LookbackDays < 1 {
		return fmt.Errorf("query.lookback_days must be at least 1")
	}

	if c.Timezone != "" {
		if _, err := parseLocation(c.Timezone); err != nil {
			return fmt.Errorf("query.timezone: %w", err)
		}
	}

	return nil
}

// Validate validates storage configuration
func (c *StorageConfig) Validate() error {
	switch utils.StorageType(strings.ToLower(c.Type)) {
	case "", utils.StorageTypeMemory:
		return nil
	case utils.StorageTypeRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("storage.redis.url is required")
		}
	case utils.StorageTypePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required")
		}
		if c.Postgres.MaxOpenConns < 0 || c.Postgres.MaxIdleConns < 0 {
			return fmt.Errorf("storage.postgres connection limits must not be negative")
		}
	default:
		return fmt.Errorf("storage.type must be one of: memory, redis, postgres")
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	switch utils.QueueType(strings.ToLower(c.Type)) {
	case "", utils.QueueTypeNone:
		return nil
	case utils.QueueTypeMemory:
	case utils.QueueTypeNATS, utils.QueueTypeRedis:
		if c.URL == "" {
			return fmt.Errorf("queue.url is required for %s", c.Type)
		}
	case utils.QueueTypeKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("queue.kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("queue.type must be one of: none, memory, nats, redis, kafka")
	}

	if c.Subject == "" {
		return fmt.Errorf("queue.subject is required")
	}

	return nil
}

// Validate validates metrics configuration
func (c *MetricsConfig) Validate() error {
	if c.Enabled && !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/'")
	}
	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soltixdb/weathermetrics/internal/utils"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. WEATHER_QUERY_LOOKBACK_DAYS
const EnvPrefix = "WEATHER"

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")                   // Current directory
		v.AddConfigPath("./configs")           // Project configs directory
		v.AddConfigPath("./config")            // Alternative config directory
		v.AddConfigPath("/etc/weathermetrics") // System-wide config
	}

	setDefaults(v)

	// Environment overrides: storage.redis.url -> WEATHER_STORAGE_REDIS_URL
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)

	// Query defaults
	v.SetDefault("query.lookback_days", d.Query.LookbackDays)
	v.SetDefault("query.timezone", d.Query.Timezone)

	// Storage defaults
	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.redis.url", d.Storage.Redis.URL)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.key_prefix", d.Storage.Redis.KeyPrefix)
	v.SetDefault("storage.redis.compress", d.Storage.Redis.Compress)
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.table_prefix", "")
	v.SetDefault("storage.postgres.max_open_conns", d.Storage.Postgres.MaxOpenConns)
	v.SetDefault("storage.postgres.max_idle_conns", d.Storage.Postgres.MaxIdleConns)
	v.SetDefault("storage.postgres.conn_max_lifetime", d.Storage.Postgres.ConnMaxLife)

	// Queue defaults
	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.username", "")
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.subject", d.Queue.Subject)
	v.SetDefault("queue.consumer_group", d.Queue.ConsumerGroup)
	v.SetDefault("queue.nats_stream", d.Queue.NATSStream)
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_maxlen", d.Queue.RedisMaxLen)
	v.SetDefault("queue.kafka_brokers", []string{})

	// Metrics defaults
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     8080,
			ReadTimeout:  utils.DefaultReadTimeout,
			WriteTimeout: utils.DefaultWriteTimeout,
			BodyLimit:    1 << 20,
		},
		Query: QueryConfig{
			LookbackDays: utils.DefaultLookbackDays,
			Timezone:     "UTC",
		},
		Storage: StorageConfig{
			Type: string(utils.StorageTypeMemory),
			Redis: RedisConfig{
				URL:       "redis://localhost:6379/0",
				KeyPrefix: "weather",
				Compress:  true,
			},
			Postgres: PostgresConfig{
				MaxOpenConns: 10,
				MaxIdleConns: 5,
				ConnMaxLife:  30 * time.Minute,
			},
		},
		Queue: QueueConfig{
			Type:          string(utils.QueueTypeNone),
			URL:           "nats://localhost:4222",
			Subject:       "weather.readings.recorded",
			ConsumerGroup: "weather-events",
			NATSStream:    "WEATHER",
			RedisStream:   "weather",
			RedisMaxLen:   100000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
			TimeFormat: "RFC3339",
		},
	}
}

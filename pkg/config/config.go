// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the HTTP
// server, query policy, index sources (files, Postgres, Redis), Kafka,
// logging, and metrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Query     QueryConfig     `yaml:"query"`
	Index     IndexConfig     `yaml:"index"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// QueryConfig controls query validation. MaxTokens <= 0 disables the boolean
// token cap.
type QueryConfig struct {
	MaxTokens int    `yaml:"maxTokens"`
	Stemmer   string `yaml:"stemmer"`
}

// IndexConfig selects where the index snapshot is loaded from and how it is
// refreshed.
type IndexConfig struct {
	Source         string        `yaml:"source"`
	InvertedPath   string        `yaml:"invertedPath"`
	PositionalPath string        `yaml:"positionalPath"`
	LoadTimeout    time.Duration `yaml:"loadTimeout"`
	ReloadOnEvents bool          `yaml:"reloadOnEvents"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters and the key prefix under
// which index data is stored.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"poolSize"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexUpdated string `yaml:"indexUpdated"`
	QueryEvents  string `yaml:"queryEvents"`
}

// AnalyticsConfig controls publication of query events and, for the
// analytics service, how often aggregates are persisted to Postgres. A zero
// SnapshotInterval keeps aggregates in memory only.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot produce a working service.
func (c *Config) Validate() error {
	switch c.Index.Source {
	case "file":
		if c.Index.InvertedPath == "" && c.Index.PositionalPath == "" {
			return fmt.Errorf("index source %q needs invertedPath or positionalPath", c.Index.Source)
		}
	case "postgres", "redis":
	default:
		return fmt.Errorf("unknown index source %q", c.Index.Source)
	}
	if c.Index.ReloadOnEvents && c.Kafka.Topics.IndexUpdated == "" {
		return fmt.Errorf("reloadOnEvents requires kafka.topics.indexUpdated")
	}
	if c.Analytics.Enabled && c.Kafka.Topics.QueryEvents == "" {
		return fmt.Errorf("analytics requires kafka.topics.queryEvents")
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Query: QueryConfig{
			MaxTokens: 5,
			Stemmer:   "porter",
		},
		Index: IndexConfig{
			Source:         "file",
			InvertedPath:   "data/inverted_index.txt",
			PositionalPath: "data/positional_index.txt",
			LoadTimeout:    2 * time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "boolsearch",
			User:            "boolsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "bq:",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "boolsearch-group",
			Topics: KafkaTopics{
				IndexUpdated: "index-updated",
				QueryEvents:  "query-events",
			},
		},
		Analytics: AnalyticsConfig{
			Enabled:       false,
			BufferSize:    10000,
			BatchSize:     100,
			FlushInterval: time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads BQ_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BQ_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BQ_QUERY_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Query.MaxTokens = n
		}
	}
	if v := os.Getenv("BQ_QUERY_STEMMER"); v != "" {
		cfg.Query.Stemmer = v
	}
	if v := os.Getenv("BQ_INDEX_SOURCE"); v != "" {
		cfg.Index.Source = v
	}
	if v := os.Getenv("BQ_INDEX_INVERTED_PATH"); v != "" {
		cfg.Index.InvertedPath = v
	}
	if v := os.Getenv("BQ_INDEX_POSITIONAL_PATH"); v != "" {
		cfg.Index.PositionalPath = v
	}
	if v := os.Getenv("BQ_INDEX_RELOAD_ON_EVENTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Index.ReloadOnEvents = b
		}
	}
	if v := os.Getenv("BQ_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("BQ_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("BQ_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("BQ_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("BQ_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("BQ_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("BQ_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BQ_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("BQ_ANALYTICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Enabled = b
		}
	}
	if v := os.Getenv("BQ_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BQ_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

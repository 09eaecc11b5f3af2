package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Queue          QueueConfig
	Extractor      ExtractorConfig
	Workspace      WorkspaceConfig
	Worker         WorkerConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	CircuitBreaker CircuitBreakerConfig
	RateLimit      RateLimitConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type QueueConfig struct {
	// Type selects the queue backend: "redis" or "memory".
	Type string `mapstructure:"type"`
}

type ExtractorConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	TimeoutSeconds    time.Duration `mapstructure:"timeout_seconds"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

type WorkspaceConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	DatabaseID        string        `mapstructure:"database_id"`
	TimeoutSeconds    time.Duration `mapstructure:"timeout_seconds"`
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
}

type WorkerConfig struct {
	MaxAttempts         int           `mapstructure:"max_attempts"`
	PollIntervalSeconds time.Duration `mapstructure:"poll_interval_seconds"`
	Retry               RetryConfig   `mapstructure:"retry"`
}

type RetryConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

type BrokerConfig struct {
	// Type is empty when the event stream is disabled, otherwise "kafka".
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers             []string `mapstructure:"brokers"`
	CompletedTopic      string   `mapstructure:"completed_topic"`
	DeadLetteredTopic   string   `mapstructure:"dead_lettered_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	IntervalSeconds  time.Duration `mapstructure:"interval_seconds"`
	TimeoutSeconds   time.Duration `mapstructure:"timeout_seconds"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("extractor.api_key", "ANTHROPIC_API_KEY")
	viper.BindEnv("extractor.model", "EXTRACTOR_MODEL")
	viper.BindEnv("workspace.api_key", "NOTION_API_KEY")
	viper.BindEnv("workspace.database_id", "NOTION_DATABASE_ID")

	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("logging.level", "LOGGING_LEVEL")
}

func setDefaults() {
	viper.SetDefault("queue.type", "redis")
	viper.SetDefault("worker.max_attempts", 3)
	viper.SetDefault("worker.poll_interval_seconds", "1s")
	viper.SetDefault("worker.retry.initial_interval", "2s")
	viper.SetDefault("worker.retry.max_interval", "1m")
	viper.SetDefault("worker.retry.multiplier", 2.0)
	viper.SetDefault("extractor.base_url", "https://api.anthropic.com")
	viper.SetDefault("extractor.model", "claude-3-opus-20240229")
	viper.SetDefault("extractor.timeout_seconds", "60s")
	viper.SetDefault("extractor.requests_per_minute", 50)
	viper.SetDefault("workspace.base_url", "https://api.notion.com")
	viper.SetDefault("workspace.timeout_seconds", "30s")
	viper.SetDefault("workspace.requests_per_second", 3)
	viper.SetDefault("broker.kafka.completed_topic", "deal.completed")
	viper.SetDefault("broker.kafka.dead_lettered_topic", "message.dead_lettered")
	viper.SetDefault("logging.level", "info")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	return nil
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func baseConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Queue:  QueueConfig{Type: "redis"},
		Worker: WorkerConfig{
			MaxAttempts:         3,
			PollIntervalSeconds: time.Second,
			Retry: RetryConfig{
				InitialInterval: 2 * time.Second,
				MaxInterval:     time.Minute,
				Multiplier:      2.0,
			},
		},
	}
}

func TestValidateStatic(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:   "memory queue",
			mutate: func(c *Config) { c.Queue.Type = "memory" },
		},
		{
			name:      "zero port",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantError: true,
		},
		{
			name:      "port out of range",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantError: true,
		},
		{
			name:      "unknown queue type",
			mutate:    func(c *Config) { c.Queue.Type = "sqs" },
			wantError: true,
		},
		{
			name:      "zero max attempts",
			mutate:    func(c *Config) { c.Worker.MaxAttempts = 0 },
			wantError: true,
		},
		{
			name:      "shrinking backoff",
			mutate:    func(c *Config) { c.Worker.Retry.Multiplier = 0.5 },
			wantError: true,
		},
		{
			name:   "kafka broker enabled",
			mutate: func(c *Config) { c.Broker = BrokerConfig{Type: "kafka", Kafka: KafkaConfig{Brokers: []string{"kafka:9092"}}} },
		},
		{
			name:      "kafka without brokers",
			mutate:    func(c *Config) { c.Broker = BrokerConfig{Type: "kafka"} },
			wantError: true,
		},
		{
			name:      "kafka with empty broker address",
			mutate:    func(c *Config) { c.Broker = BrokerConfig{Type: "kafka", Kafka: KafkaConfig{Brokers: []string{""}}} },
			wantError: true,
		},
		{
			name:      "unknown broker type",
			mutate:    func(c *Config) { c.Broker.Type = "rabbitmq" },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)

			err := ValidateStatic(cfg)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

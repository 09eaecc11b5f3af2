package config

import (
	"fmt"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errs []error

	if err := validateServer(cfg.Server); err != nil {
		errs = append(errs, err)
	}

	if err := validateQueue(cfg.Queue); err != nil {
		errs = append(errs, err)
	}

	if err := validateWorker(cfg.Worker); err != nil {
		errs = append(errs, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateQueue(cfg QueueConfig) error {
	switch cfg.Type {
	case "redis", "memory":
		return nil
	default:
		return &ValidationError{
			Field:   "queue.type",
			Message: fmt.Sprintf("unknown queue type: %s (supported: redis, memory)", cfg.Type),
		}
	}
}

func validateWorker(cfg WorkerConfig) error {
	if cfg.MaxAttempts < 1 {
		return &ValidationError{
			Field:   "worker.max_attempts",
			Message: fmt.Sprintf("max attempts must be at least 1, got %d", cfg.MaxAttempts),
		}
	}

	if cfg.Retry.Multiplier < 1 {
		return &ValidationError{
			Field:   "worker.retry.multiplier",
			Message: "retry multiplier must be at least 1",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "":
		return nil // event stream disabled
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			return &ValidationError{
				Field:   "broker.kafka.brokers",
				Message: "at least one Kafka broker is required",
			}
		}
		for i, broker := range cfg.Kafka.Brokers {
			if broker == "" {
				return &ValidationError{
					Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
					Message: "broker address cannot be empty",
				}
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
}

package broker

import (
	"context"
	"fmt"

	"dealflow/internal/config"
	"dealflow/internal/logger"
)

// NewProducer builds the event stream producer named by config. An empty
// broker type disables the stream and returns a producer that drops events.
func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case "":
		return NopProducer{}, nil
	case "kafka":
		return NewKafkaProducer(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

// NopProducer satisfies Producer when no event stream is configured.
type NopProducer struct{}

func (NopProducer) Publish(ctx context.Context, topic string, event Event) error { return nil }

func (NopProducer) Close() error { return nil }

package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dealflow/internal/config"
	"dealflow/internal/logger"
)

// Item is the transient unit of work carried between ingestion and the
// worker. It is consumed exactly once per dequeue and removed from the
// in-flight set on completion or dead-lettering.
type Item struct {
	ExternalID string `json:"external_id"`
	Text       string `json:"text"`
	MessageID  string `json:"message_id"`
}

// DeadItem is an Item that exhausted its attempt budget, with the last
// failure attached.
type DeadItem struct {
	Item
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// Sizes reports the depth of each queue collection.
type Sizes struct {
	Main       int64 `json:"main"`
	InFlight   int64 `json:"in_flight"`
	DeadLetter int64 `json:"dead_letter"`
	Retry      int64 `json:"retry"`
}

// Queue is a durable FIFO of pending work items with an in-flight set, a
// scheduled-retry set and an append-only dead-letter list.
type Queue interface {
	// Enqueue pushes an item onto the tail of the main queue.
	Enqueue(ctx context.Context, item Item) error
	// Dequeue pops the oldest item and records it in-flight in a single
	// atomic step. ok is false when the queue is empty.
	Dequeue(ctx context.Context) (item Item, ok bool, err error)
	// MarkCompleted removes the item from the in-flight set.
	MarkCompleted(ctx context.Context, externalID string) error
	// Requeue schedules the item for another attempt after delay and
	// releases its in-flight entry.
	Requeue(ctx context.Context, item Item, delay time.Duration) error
	// DeadLetter appends the item to the dead-letter list with the failure
	// attached and releases its in-flight entry. Terminal.
	DeadLetter(ctx context.Context, item Item, cause error) error
	Sizes(ctx context.Context) (Sizes, error)
}

// New selects a queue backend by configuration, mirroring the broker
// factory shape.
func New(cfg config.QueueConfig, rdb *redis.Client, log logger.Logger) (Queue, error) {
	switch cfg.Type {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis queue requires a redis client")
		}
		return NewRedisQueue(rdb, log), nil
	case "memory":
		return NewMemoryQueue(), nil
	default:
		return nil, fmt.Errorf("unknown queue type: %s", cfg.Type)
	}
}

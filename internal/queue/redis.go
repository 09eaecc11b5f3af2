package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dealflow/internal/constants"
	"dealflow/internal/logger"
)

// dequeueScript promotes due retry entries back onto the main list, pops the
// oldest item and records it in the in-flight set in one atomic step, so no
// crash window exists between pop and in-flight bookkeeping.
//
// KEYS[1] main list, KEYS[2] in-flight set, KEYS[3] retry zset.
// ARGV[1] current unix time.
var dequeueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', ARGV[1])
if #due > 0 then
  for i = 1, #due do
    redis.call('RPUSH', KEYS[1], due[i])
  end
  redis.call('ZREMRANGEBYSCORE', KEYS[3], '-inf', ARGV[1])
end
local raw = redis.call('RPOP', KEYS[1])
if not raw then
  return false
end
local item = cjson.decode(raw)
redis.call('SADD', KEYS[2], item['external_id'])
return raw
`)

type RedisQueue struct {
	client   *redis.Client
	mainKey  string
	procKey  string
	deadKey  string
	retryKey string
	logger   logger.Logger
}

func NewRedisQueue(client *redis.Client, log logger.Logger) *RedisQueue {
	return &RedisQueue{
		client:   client,
		mainKey:  constants.QueueKeyMain,
		procKey:  constants.QueueKeyProcessing,
		deadKey:  constants.QueueKeyDeadLetter,
		retryKey: constants.QueueKeyRetry,
		logger:   log,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, item Item) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}

	if err := q.client.LPush(ctx, q.mainKey, body).Err(); err != nil {
		return fmt.Errorf("failed to enqueue item: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Item, bool, error) {
	res, err := dequeueScript.Run(ctx, q.client,
		[]string{q.mainKey, q.procKey, q.retryKey},
		time.Now().Unix(),
	).Result()
	if err == redis.Nil {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, fmt.Errorf("dequeue script failed: %w", err)
	}

	raw, ok := res.(string)
	if !ok {
		return Item{}, false, fmt.Errorf("dequeue script returned unexpected type %T", res)
	}

	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return Item{}, false, fmt.Errorf("failed to unmarshal queue item: %w", err)
	}
	return item, true, nil
}

func (q *RedisQueue) MarkCompleted(ctx context.Context, externalID string) error {
	if err := q.client.SRem(ctx, q.procKey, externalID).Err(); err != nil {
		return fmt.Errorf("failed to mark item completed: %w", err)
	}
	return nil
}

func (q *RedisQueue) Requeue(ctx context.Context, item Item, delay time.Duration) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}

	readyAt := time.Now().Add(delay).Unix()
	pipe := q.client.TxPipeline()
	pipe.ZAdd(ctx, q.retryKey, redis.Z{Score: float64(readyAt), Member: body})
	pipe.SRem(ctx, q.procKey, item.ExternalID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to requeue item: %w", err)
	}
	return nil
}

func (q *RedisQueue) DeadLetter(ctx context.Context, item Item, cause error) error {
	dead := DeadItem{
		Item:     item,
		Error:    cause.Error(),
		FailedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(dead)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter item: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.deadKey, body)
	pipe.SRem(ctx, q.procKey, item.ExternalID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to dead-letter item: %w", err)
	}

	q.logger.WarnwCtx(ctx, "Item moved to dead-letter list",
		"external_id", item.ExternalID,
		"error", cause.Error(),
	)
	return nil
}

func (q *RedisQueue) Sizes(ctx context.Context) (Sizes, error) {
	pipe := q.client.Pipeline()
	mainLen := pipe.LLen(ctx, q.mainKey)
	procLen := pipe.SCard(ctx, q.procKey)
	deadLen := pipe.LLen(ctx, q.deadKey)
	retryLen := pipe.ZCard(ctx, q.retryKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Sizes{}, fmt.Errorf("failed to read queue sizes: %w", err)
	}

	return Sizes{
		Main:       mainLen.Val(),
		InFlight:   procLen.Val(),
		DeadLetter: deadLen.Val(),
		Retry:      retryLen.Val(),
	}, nil
}

package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealflow/internal/config"
	"dealflow/internal/logger"
)

func testItem(id string) Item {
	return Item{ExternalID: id, Text: "deal text " + id, MessageID: "msg-" + id}
}

func TestMemoryQueueFIFO(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	require.NoError(t, q.Enqueue(ctx, testItem("a")))
	require.NoError(t, q.Enqueue(ctx, testItem("b")))
	require.NoError(t, q.Enqueue(ctx, testItem("c")))

	for _, want := range []string{"a", "b", "c"} {
		item, ok, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, item.ExternalID)
	}

	_, ok, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryQueueDequeueTracksInFlight(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	require.NoError(t, q.Enqueue(ctx, testItem("a")))

	_, ok, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	sizes, err := q.Sizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sizes.Main)
	assert.Equal(t, int64(1), sizes.InFlight)

	require.NoError(t, q.MarkCompleted(ctx, "a"))

	sizes, err = q.Sizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sizes.InFlight)
}

func TestMemoryQueueRequeuePromotion(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	now := time.Now()
	q.now = func() time.Time { return now }

	require.NoError(t, q.Enqueue(ctx, testItem("a")))
	item, ok, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, q.Requeue(ctx, item, 30*time.Second))

	// Not due yet: invisible to consumers.
	_, ok, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	sizes, err := q.Sizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sizes.Retry)
	assert.Equal(t, int64(0), sizes.InFlight)

	// Past the delay the item is promoted back to the main queue.
	now = now.Add(31 * time.Second)
	item, ok, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", item.ExternalID)
}

func TestMemoryQueueDeadLetter(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	require.NoError(t, q.Enqueue(ctx, testItem("a")))
	item, ok, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	cause := errors.New("extraction failed after 3 attempts")
	require.NoError(t, q.DeadLetter(ctx, item, cause))

	sizes, err := q.Sizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sizes.DeadLetter)
	assert.Equal(t, int64(0), sizes.InFlight)

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, "a", dead[0].Item.ExternalID)
	assert.Equal(t, cause.Error(), dead[0].Error)
	assert.False(t, dead[0].FailedAt.IsZero())

	// Dead-lettered items never come back on their own.
	_, ok, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewSelectsBackend(t *testing.T) {
	q, err := New(config.QueueConfig{Type: "memory"}, nil, logger.NopLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryQueue{}, q)

	_, err = New(config.QueueConfig{Type: "tarantool"}, nil, logger.NopLogger())
	assert.Error(t, err)
}

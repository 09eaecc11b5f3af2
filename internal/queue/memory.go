package queue

import (
	"context"
	"sync"
	"time"
)

type retryEntry struct {
	item    Item
	readyAt time.Time
}

// MemoryQueue implements Queue with in-process storage and the same
// semantics as the Redis backend. Used for local development and tests;
// durability is obviously not provided.
type MemoryQueue struct {
	mu         sync.Mutex
	main       []Item
	inFlight   map[string]struct{}
	retries    []retryEntry
	deadLetter []DeadItem
	now        func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		inFlight: make(map[string]struct{}),
		now:      time.Now,
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, item Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.main = append(q.main, item)
	return nil
}

func (q *MemoryQueue) Dequeue(_ context.Context) (Item, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.promoteDueLocked()

	if len(q.main) == 0 {
		return Item{}, false, nil
	}

	item := q.main[0]
	q.main = q.main[1:]
	q.inFlight[item.ExternalID] = struct{}{}
	return item, true, nil
}

func (q *MemoryQueue) promoteDueLocked() {
	if len(q.retries) == 0 {
		return
	}
	now := q.now()
	var pending []retryEntry
	for _, e := range q.retries {
		if !e.readyAt.After(now) {
			q.main = append(q.main, e.item)
		} else {
			pending = append(pending, e)
		}
	}
	q.retries = pending
}

func (q *MemoryQueue) MarkCompleted(_ context.Context, externalID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, externalID)
	return nil
}

func (q *MemoryQueue) Requeue(_ context.Context, item Item, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retries = append(q.retries, retryEntry{item: item, readyAt: q.now().Add(delay)})
	delete(q.inFlight, item.ExternalID)
	return nil
}

func (q *MemoryQueue) DeadLetter(_ context.Context, item Item, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deadLetter = append(q.deadLetter, DeadItem{
		Item:     item,
		Error:    cause.Error(),
		FailedAt: q.now().UTC(),
	})
	delete(q.inFlight, item.ExternalID)
	return nil
}

func (q *MemoryQueue) Sizes(_ context.Context) (Sizes, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Sizes{
		Main:       int64(len(q.main)),
		InFlight:   int64(len(q.inFlight)),
		DeadLetter: int64(len(q.deadLetter)),
		Retry:      int64(len(q.retries)),
	}, nil
}

// DeadLetters returns a snapshot of the dead-letter list, oldest first.
// Draining the list is an operational action outside the worker's scope.
func (q *MemoryQueue) DeadLetters() []DeadItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadItem, len(q.deadLetter))
	copy(out, q.deadLetter)
	return out
}

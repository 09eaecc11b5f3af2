package extractor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreRingBuffer(t *testing.T) {
	store := NewSessionStore(5)

	for i := 0; i < 8; i++ {
		store.Append("chat-1", RoleUser, fmt.Sprintf("message %d", i))
	}

	history := store.History("chat-1")
	require.Len(t, history, 5)
	// The three oldest entries were evicted.
	assert.Equal(t, "message 3", history[0].Content)
	assert.Equal(t, "message 7", history[4].Content)
}

func TestSessionStoreIsolatesSessions(t *testing.T) {
	store := NewSessionStore(5)

	store.Append("chat-1", RoleUser, "hello from one")
	store.Append("chat-2", RoleUser, "hello from two")

	require.Len(t, store.History("chat-1"), 1)
	require.Len(t, store.History("chat-2"), 1)
	assert.Equal(t, "hello from one", store.History("chat-1")[0].Content)
}

func TestSessionStoreUnknownSession(t *testing.T) {
	store := NewSessionStore(5)
	assert.Nil(t, store.History("missing"))
}

func TestSessionStoreEvict(t *testing.T) {
	store := NewSessionStore(5)
	store.Append("chat-1", RoleUser, "hello")
	store.Evict("chat-1")
	assert.Nil(t, store.History("chat-1"))
}

func TestSessionStoreHistoryIsACopy(t *testing.T) {
	store := NewSessionStore(5)
	store.Append("chat-1", RoleUser, "original")

	history := store.History("chat-1")
	history[0].Content = "mutated"

	assert.Equal(t, "original", store.History("chat-1")[0].Content)
}

package extractor

import (
	"sync"
	"time"
)

// SessionStore keeps a bounded rolling window of conversation history per
// session key. Old entries are evicted in arrival order once the window is
// full, so memory stays bounded regardless of session lifetime.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	limit    int
}

type session struct {
	mu      sync.Mutex
	entries []ChatMessage
	limit   int
}

func NewSessionStore(limit int) *SessionStore {
	if limit <= 0 {
		limit = 1
	}
	return &SessionStore{
		sessions: make(map[string]*session),
		limit:    limit,
	}
}

// Append records one exchange message for the session, evicting the oldest
// entry when the window is full.
func (s *SessionStore) Append(key, role, content string) {
	sess := s.get(key)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	msg := ChatMessage{Role: role, Content: content, Timestamp: time.Now().UTC()}
	if len(sess.entries) == sess.limit {
		copy(sess.entries, sess.entries[1:])
		sess.entries[sess.limit-1] = msg
		return
	}
	sess.entries = append(sess.entries, msg)
}

// History returns a copy of the session's window, oldest first.
func (s *SessionStore) History(key string) []ChatMessage {
	s.mu.RLock()
	sess, ok := s.sessions[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]ChatMessage, len(sess.entries))
	copy(out, sess.entries)
	return out
}

// Evict drops a session's history entirely.
func (s *SessionStore) Evict(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

func (s *SessionStore) get(key string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[key]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[key]; ok {
		return sess
	}
	sess = &session{limit: s.limit, entries: make([]ChatMessage, 0, s.limit)}
	s.sessions[key] = sess
	return sess
}

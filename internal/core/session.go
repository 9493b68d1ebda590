package core

import (
	"sync"
	"time"
)

// SessionStore holds live conversations keyed by session id. Nothing is
// persisted; a restart starts every session fresh.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Conversation
	now      func() time.Time
	onCreate func(*Conversation)
}

// NewSessionStore creates an empty store. onCreate, when non-nil, runs once
// for every new conversation before it is returned.
func NewSessionStore(now func() time.Time, onCreate func(*Conversation)) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		sessions: make(map[string]*Conversation),
		now:      now,
		onCreate: onCreate,
	}
}

// Get returns the conversation for id without creating one.
func (s *SessionStore) Get(id string) (*Conversation, bool) {
	s.mu.RLock()
	c, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		c.touch(s.now())
	}
	return c, ok
}

// GetOrCreate returns the conversation for id, creating it if needed.
func (s *SessionStore) GetOrCreate(id string) *Conversation {
	if c, ok := s.Get(id); ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.sessions[id]; ok {
		return c
	}
	c := newConversation(id, s.now)
	if s.onCreate != nil {
		s.onCreate(c)
	}
	s.sessions[id] = c
	return c
}

// Delete drops the conversation for id. It reports whether one existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Sweep drops conversations idle for longer than ttl and returns how many
// were removed. Conversations with a request in flight are kept.
func (s *SessionStore) Sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.sessions {
		if c.LastActive().After(cutoff) || c.busy() {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// Len returns the number of live conversations.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

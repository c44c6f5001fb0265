package delivery

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps tokens in process. Tokens do not survive a restart.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]memEntry
	ttl    time.Duration
	now    func() time.Time
}

type memEntry struct {
	tok       Token
	expiresAt time.Time // zero: never
}

// NewMemoryStore returns a store whose tokens expire after ttl; ttl <= 0
// keeps them until consumed.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]memEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, t Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memEntry{tok: t}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.tokens[t.ID] = e
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, id string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return nil, nil
	}
	delete(s.tokens, id)
	t := e.tok
	return &t, nil
}

func (s *MemoryStore) Attach(_ context.Context, id, deliveredRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return false, nil
	}
	e.tok.DeliveredRef = deliveredRef
	s.tokens[id] = e
	return true, nil
}

func (s *MemoryStore) Revoke(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(id); !ok {
		return false, nil
	}
	delete(s.tokens, id)
	return true, nil
}

// Prune drops expired tokens and reports how many were removed.
func (s *MemoryStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, e := range s.tokens {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(s.tokens, id)
			n++
		}
	}
	return n
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// live must be called with mu held. Expired entries are dropped on sight.
func (s *MemoryStore) live(id string) (memEntry, bool) {
	e, ok := s.tokens[id]
	if !ok {
		return memEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.tokens, id)
		return memEntry{}, false
	}
	return e, true
}

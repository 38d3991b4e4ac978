package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/embedwallet/ports"
)

// MemoryStore keeps invalidated tokens and consumed challenges in process memory
type MemoryStore struct {
	invalidated map[string]time.Time
	consumed    map[string]time.Time
	now         func() time.Time
	mu          sync.Mutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Store {
	return newMemoryStore(time.Now)
}

func newMemoryStore(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		invalidated: make(map[string]time.Time),
		consumed:    make(map[string]time.Time),
		now:         now,
	}
}

// InvalidateToken marks a token as invalidated until expiry elapses
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	s.invalidated[tokenID] = s.now().Add(expiry)
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, exists := s.invalidated[tokenID]
	return exists && s.now().Before(until), nil
}

// ConsumeOnce reports true for the first call with id until ttl elapses
func (s *MemoryStore) ConsumeOnce(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	if until, exists := s.consumed[id]; exists && s.now().Before(until) {
		return false, nil
	}
	s.consumed[id] = s.now().Add(ttl)
	return true, nil
}

// sweep drops expired entries. Callers hold mu.
func (s *MemoryStore) sweep() {
	now := s.now()
	for id, until := range s.invalidated {
		if !now.Before(until) {
			delete(s.invalidated, id)
		}
	}
	for id, until := range s.consumed {
		if !now.Before(until) {
			delete(s.consumed, id)
		}
	}
}

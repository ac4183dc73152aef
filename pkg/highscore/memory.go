package highscore

import (
	"context"
	"sync"
)

// MemoryStore keeps the best score in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	best int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (s *MemoryStore) Get(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.best, nil
}

// Submit implements Store.
func (s *MemoryStore) Submit(_ context.Context, score int) (int, bool, error) {
	if err := validateScore(score); err != nil {
		return 0, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if score > s.best {
		s.best = score
		return s.best, true, nil
	}
	return s.best, false, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

package cart

import (
	"context"
	"sync"
)

// MemoryStore keeps carts in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[int64][]int64
}

// NewMemoryStore creates an empty in-memory cart store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[int64][]int64)}
}

func (s *MemoryStore) Load(ctx context.Context, userID int64) (Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.carts[userID]
	out := make([]int64, len(ids))
	copy(out, ids)
	return Cart{CourseIDs: out}, nil
}

func (s *MemoryStore) Save(ctx context.Context, userID int64, c Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.IsEmpty() {
		delete(s.carts, userID)
		return nil
	}
	ids := make([]int64, len(c.CourseIDs))
	copy(ids, c.CourseIDs)
	s.carts[userID] = ids
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, userID)
	return nil
}

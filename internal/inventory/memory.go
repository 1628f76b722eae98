package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/safar/go-order-store/internal/database"
	"github.com/safar/go-order-store/internal/models"
)

// MemoryStore is a mutex-guarded in-memory ProductStore. The stock guard in
// AdjustStock holds under the same lock as the mutation, matching the
// conditional-update semantics of the SQL adapter.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]models.Product
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]models.Product)}
}

func (s *MemoryStore) Put(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.ID] = p
}

func (s *MemoryStore) Load(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	return &p, nil
}

func (s *MemoryStore) AdjustStock(_ context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[id]
	if !ok {
		return database.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return database.ErrInsufficientStock
	}
	p.Stock += delta
	p.Version++
	p.UpdatedAt = time.Now()
	s.m[id] = p
	return nil
}

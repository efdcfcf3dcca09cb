package storage

import (
	"context"
	"sync"

	"github.com/xaenox/cupid-bot/internal/models"
)

// MemoryStorage keeps bindings for the life of the process only.
type MemoryStorage struct {
	mu       sync.RWMutex
	bindings map[string]models.Binding
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		bindings: make(map[string]models.Binding),
	}
}

func (s *MemoryStorage) SaveBinding(ctx context.Context, binding *models.Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bindings[binding.ID] = *binding
	return nil
}

func (s *MemoryStorage) GetBinding(ctx context.Context, id string) (*models.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	binding, exists := s.bindings[id]
	if !exists {
		return nil, ErrBindingNotFound
	}
	return &binding, nil
}

func (s *MemoryStorage) DeleteBinding(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.bindings, id)
	return nil
}

func (s *MemoryStorage) DeleteBindingsFor(ctx context.Context, key models.Key) ([]models.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []models.Binding
	for id, binding := range s.bindings {
		if binding.Proposal == key {
			removed = append(removed, binding)
			delete(s.bindings, id)
		}
	}
	return removed, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

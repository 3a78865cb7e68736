package store

import (
	"errors"
	"sync"

	"github.com/i474232898/velib-indicators/internal/velib"
)

var (
	// ErrNotFound is returned when no batch has been processed yet.
	ErrNotFound = errors.New("no station batch available")
)

// MemoryStore is a concurrency-safe in-memory holder of the latest processed batch.
// Earlier batches are discarded when a new one is saved.
type MemoryStore struct {
	mu sync.RWMutex

	latest *velib.Batch
	saved  int
}

var _ velib.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveBatch replaces the latest batch.
func (s *MemoryStore) SaveBatch(batch velib.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = &batch
	s.saved++
}

// Latest returns the most recently saved batch.
func (s *MemoryStore) Latest() (velib.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return velib.Batch{}, ErrNotFound
	}
	return *s.latest, nil
}

// Saved returns how many batches have been saved since start.
func (s *MemoryStore) Saved() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saved
}

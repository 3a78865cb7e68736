package store

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/velib-indicators/internal/velib"
)

func TestMemoryStoreEmpty(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Latest()
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Saved())
}

func TestMemoryStoreKeepsLatestOnly(t *testing.T) {
	s := NewMemoryStore()

	first := velib.Batch{ID: uuid.New(), Source: "a"}
	second := velib.Batch{ID: uuid.New(), Source: "b"}
	s.SaveBatch(first)
	s.SaveBatch(second)

	got, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, 2, s.Saved())
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SaveBatch(velib.Batch{ID: uuid.New()})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Latest()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Saved())
	_, err := s.Latest()
	assert.NoError(t, err)
}

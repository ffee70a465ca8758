package pricing

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSnapshot is returned by a Store that has nothing persisted
var ErrNoSnapshot = errors.New("no persisted price snapshot")

// Store persists the raw price index together with the time it was fetched
type Store interface {
	Load(ctx context.Context) ([]byte, time.Time, error)
	Save(ctx context.Context, data []byte, fetchedAt time.Time) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the persisted snapshot in process memory
type MemoryStore struct {
	mu        sync.RWMutex
	data      []byte
	fetchedAt time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Load(ctx context.Context) ([]byte, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, time.Time{}, ErrNoSnapshot
	}
	return s.data, s.fetchedAt, nil
}

func (s *MemoryStore) Save(ctx context.Context, data []byte, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = data
	s.fetchedAt = fetchedAt
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = nil
	s.fetchedAt = time.Time{}
	return nil
}

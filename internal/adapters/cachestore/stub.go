package cachestore

import (
	"context"
	"maps"
	"sync"

	"github.com/matshaug/flagline/internal/domain"
)

// StubSnapshotStore keeps snapshots in memory. Used in development when no
// database is reachable, and by tests.
type StubSnapshotStore struct {
	mu      sync.Mutex
	entries map[string]domain.CacheEntry
	enabled bool
	saves   int
}

func NewStubSnapshotStore() *StubSnapshotStore {
	return &StubSnapshotStore{
		entries: make(map[string]domain.CacheEntry),
		enabled: true,
	}
}

func (s *StubSnapshotStore) Load(ctx context.Context) (map[string]domain.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.entries), nil
}

func (s *StubSnapshotStore) Save(ctx context.Context, entries map[string]domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = maps.Clone(entries)
	s.saves++
	return nil
}

func (s *StubSnapshotStore) Enabled(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled, nil
}

func (s *StubSnapshotStore) SetEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	return nil
}

// Saves reports how many snapshot writes have happened. Test helper.
func (s *StubSnapshotStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

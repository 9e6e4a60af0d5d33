package cachestore

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/matshaug/flagline/internal/domain"
)

const (
	// EntryTTL is how long a resolved location stays valid across sessions.
	EntryTTL = 7 * 24 * time.Hour

	// snapshotDebounce coalesces bursts of Set calls into one storage write.
	snapshotDebounce = 5 * time.Second

	// flushInterval is the periodic best-effort flush.
	flushInterval = 30 * time.Second
)

// Store is the location cache. Entries with a nil location live in memory
// only: they stop re-fetches for the rest of the session but are never
// persisted, so an unresolvable handle is retried on the next session.
type Store struct {
	snapshots SnapshotStore
	logger    *slog.Logger
	nowFunc   func() time.Time
	afterFunc func(time.Duration) <-chan time.Time
	ttl       time.Duration

	mu             sync.Mutex
	entries        map[string]domain.CacheEntry
	flushScheduled bool
}

func New(
	snapshots SnapshotStore,
	logger *slog.Logger,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) *Store {
	return &Store{
		snapshots: snapshots,
		logger:    logger,
		nowFunc:   nowFunc,
		afterFunc: afterFunc,
		ttl:       EntryTTL,
		entries:   make(map[string]domain.CacheEntry),
	}
}

// Get returns the cached location for handle. The second return value
// distinguishes a cached nil location (known to have no data this session)
// from an absent entry. Expired entries are dropped lazily.
func (s *Store) Get(handle string) (*string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[handle]
	if !ok {
		return nil, false
	}
	if entry.Expired(s.nowFunc()) {
		delete(s.entries, handle)
		return nil, false
	}
	return entry.Location, true
}

// Set stores a resolved location. Non-nil locations schedule a debounced
// snapshot save; nil locations only update the in-memory map.
func (s *Store) Set(handle string, location *string) {
	now := s.nowFunc()

	s.mu.Lock()
	s.entries[handle] = domain.CacheEntry{
		Location: location,
		CachedAt: now,
		Expiry:   now.Add(s.ttl),
	}

	shouldSchedule := location != nil && !s.flushScheduled
	if shouldSchedule {
		s.flushScheduled = true
	}
	s.mu.Unlock()

	if shouldSchedule {
		go func() {
			<-s.afterFunc(snapshotDebounce)

			s.mu.Lock()
			s.flushScheduled = false
			s.mu.Unlock()

			s.FlushToStorage(context.Background())
		}()
	}
}

// Len reports the number of live in-memory entries, nil locations included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// LoadFromStorage replaces the in-memory map with the persisted snapshot,
// dropping entries that expired or have no location.
func (s *Store) LoadFromStorage(ctx context.Context) error {
	loaded, err := s.snapshots.Load(ctx)
	if err != nil {
		return err
	}

	now := s.nowFunc()
	entries := make(map[string]domain.CacheEntry, len(loaded))
	for handle, entry := range loaded {
		if entry.Location == nil || entry.Expired(now) {
			continue
		}
		entries[handle] = entry
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Loaded location cache", "entries", len(entries))
	return nil
}

// FlushToStorage saves the persistable part of the cache. Failures are
// logged and swallowed; the cache must never take the page down with it.
func (s *Store) FlushToStorage(ctx context.Context) {
	now := s.nowFunc()

	s.mu.Lock()
	snapshot := make(map[string]domain.CacheEntry, len(s.entries))
	maps.Copy(snapshot, s.entries)
	s.mu.Unlock()

	for handle, entry := range snapshot {
		if entry.Location == nil || entry.Expired(now) {
			delete(snapshot, handle)
		}
	}

	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		s.logger.WarnContext(ctx, "Failed to persist location cache", "error", err.Error(), "entries", len(snapshot))
		return
	}
	s.logger.DebugContext(ctx, "Persisted location cache", "entries", len(snapshot))
}

// Run flushes periodically until ctx is canceled, then flushes one last time.
func (s *Store) Run(ctx context.Context) {
	for {
		select {
		case <-s.afterFunc(flushInterval):
			s.FlushToStorage(ctx)
		case <-ctx.Done():
			s.FlushToStorage(context.WithoutCancel(ctx))
			return
		}
	}
}

// Package cachestore holds resolved locations for handles. It is an
// in-memory map fronting a best-effort persistent snapshot: lookups never
// touch storage, writes are coalesced into debounced snapshot saves, and
// storage failures are logged and swallowed.
package cachestore

import (
	"context"

	"github.com/matshaug/flagline/internal/domain"
)

// SnapshotStore persists the full cache snapshot and the enabled flag.
type SnapshotStore interface {
	Load(ctx context.Context) (map[string]domain.CacheEntry, error)
	Save(ctx context.Context, entries map[string]domain.CacheEntry) error

	Enabled(ctx context.Context) (bool, error)
	SetEnabled(ctx context.Context, enabled bool) error
}

package domain

import "time"

// LookupResult is the outcome of a single location lookup through the page
// bridge. A nil Location with RateLimited == false means the upstream had no
// location for the handle (or never answered); RateLimited == true means the
// answer is unknown and must not be cached.
type LookupResult struct {
	Location    *string
	RateLimited bool
}

// CacheEntry is one resolved location held by the persistent cache.
type CacheEntry struct {
	Location *string
	CachedAt time.Time
	Expiry   time.Time
}

func (e CacheEntry) Expired(now time.Time) bool {
	return !e.Expiry.After(now)
}

// ProcessingState is the per-element annotation state, stored on the element
// as the data-flag-added attribute.
type ProcessingState string

const (
	StateAbsent     ProcessingState = ""
	StateProcessing ProcessingState = "processing"
	StateWaiting    ProcessingState = "waiting"
	StateDone       ProcessingState = "true"
	StateFailed     ProcessingState = "failed"
)

// Eligible reports whether an element in this state should be picked up by a
// scan pass. Done is terminal; processing/waiting are owned by an in-flight
// resolution.
func (s ProcessingState) Eligible() bool {
	return s == StateAbsent || s == StateFailed
}

package app

import (
	"context"
	"fmt"

	"github.com/matshaug/flagline/internal/adapters/cache"
	"github.com/matshaug/flagline/internal/adapters/cachestore"
	"github.com/matshaug/flagline/internal/domain"
	"github.com/matshaug/flagline/internal/logging"
	"github.com/matshaug/flagline/internal/reporting"
	"github.com/matshaug/flagline/internal/telemetry"
)

// ResolveLocation resolves a handle's profile location. A nil location with
// a nil error means the handle has no resolvable location.
type ResolveLocation func(ctx context.Context, handle string) (*string, error)

// LocationRequester issues one rate-limited lookup through the page bridge.
type LocationRequester interface {
	RequestLocation(ctx context.Context, handle string) (domain.LookupResult, error)
}

func resolveLocationWithoutCache(ctx context.Context, store *cachestore.Store, requester LocationRequester, handle string) (domain.LookupResult, error) {
	if location, ok := store.Get(handle); ok {
		return domain.LookupResult{Location: location}, nil
	}

	result, err := requester.RequestLocation(ctx, handle)
	if err != nil {
		// NOTE: The queue and bridge handle their own error reporting
		return domain.LookupResult{}, fmt.Errorf("could not request location: %w", err)
	}

	if result.RateLimited {
		// The answer is unknown, not "no location". Failing the claim keeps
		// it out of both caches so a later pass retries after the cool-down.
		return domain.LookupResult{}, domain.ErrRateLimited
	}

	// A nil location is stored memory-only, so it stops re-fetches for the
	// rest of this session but is absent next session.
	store.Set(handle, result.Location)

	return result, nil
}

// BuildResolveLocation layers the session cache over the persistent store
// over the request queue. Concurrent resolutions of the same handle share a
// single lookup.
func BuildResolveLocation(
	sessionCache cache.Cache[domain.LookupResult],
	store *cachestore.Store,
	requester LocationRequester,
	instruments *telemetry.Instruments,
) ResolveLocation {
	return func(ctx context.Context, handle string) (*string, error) {
		if err := domain.ValidateHandle(handle); err != nil {
			logging.FromContext(ctx).ErrorContext(ctx, "Invalid handle", "error", err.Error())
			reporting.Report(ctx, err)
			return nil, err
		}

		result, created, err := cache.GetOrCreate(ctx, sessionCache, handle, func() (domain.LookupResult, error) {
			return resolveLocationWithoutCache(ctx, store, requester, handle)
		})
		if err != nil {
			// NOTE: GetOrCreate only returns an error if create() fails, and a
			// failed create released the claim, so rate-limited handles can be
			// retried once the cool-down passes.
			return nil, fmt.Errorf("failed to cache.GetOrCreate location: %w", err)
		}

		if created {
			instruments.RecordCacheLookup(ctx, "miss")
		} else {
			instruments.RecordCacheLookup(ctx, "hit")
		}

		return result.Location, nil
	}
}

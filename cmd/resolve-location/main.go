// Dev helper: resolve a handle through the full cache/queue/bridge stack
// against a loopback fixture bridge.
//
// Usage: resolve-location <handle> [location]
//
// With a second argument the fixture answers the handle with that location;
// otherwise a small built-in table is used.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/matshaug/flagline/internal/adapters/cache"
	"github.com/matshaug/flagline/internal/adapters/cachestore"
	"github.com/matshaug/flagline/internal/adapters/pagebridge"
	"github.com/matshaug/flagline/internal/app"
	"github.com/matshaug/flagline/internal/dispatch"
	"github.com/matshaug/flagline/internal/domain"
	"github.com/matshaug/flagline/internal/ratelimiting"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "" {
		log.Fatal("No handle provided")
	}
	handle := os.Args[1]

	locations := map[string]string{
		"alice": "Paris, France",
		"bob":   "Portland, OR",
		"carol": "Tokyo",
	}
	if len(os.Args) > 2 {
		locations[handle] = os.Args[2]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	bridgeEnd, pageEnd := pagebridge.NewLoopbackPair()
	go pagebridge.RunFixtureFetcher(ctx, pageEnd, locations)

	window := ratelimiting.NewWindow()
	bridge := pagebridge.New(bridgeEnd, window, logger, time.Now, time.After)
	defer bridge.Close()

	limiter := ratelimiting.NewDispatchLimiter(2, 0, window, time.Now, time.After)
	queue := dispatch.NewQueue(bridge, limiter, window, nil, time.Now)
	defer queue.Close()

	sessionCache := cache.NewBasicCache[domain.LookupResult]()
	store := cachestore.New(cachestore.NewStubSnapshotStore(), logger, time.Now, time.After)

	resolve := app.BuildResolveLocation(sessionCache, store, queue, nil)

	location, err := resolve(ctx, handle)
	if err != nil {
		log.Fatalf("Failed to resolve location: %v", err)
	}

	if location == nil {
		fmt.Printf("@%s: no location\n", handle)
		return
	}

	flag, found := domain.FlagForLocation(*location)
	if !found {
		fmt.Printf("@%s: %s (no flag)\n", handle, *location)
		return
	}
	fmt.Printf("@%s: %s %s\n", handle, *location, flag)
}

package pagebridge_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/matshaug/flagline/internal/adapters/pagebridge"
	"github.com/matshaug/flagline/internal/domain"
	"github.com/matshaug/flagline/internal/ratelimiting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func neverFire(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}

func fireImmediately(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fetchRequest struct {
	Type       string `json:"type"`
	ScreenName string `json:"screenName"`
	RequestID  string `json:"requestId"`
}

// respondWith runs a fake page-context fetcher answering every request with
// the given location.
func respondWith(t *testing.T, fetcherEnd *pagebridge.LoopbackTransport, location *string, rateLimited bool) {
	t.Helper()
	go func() {
		for payload := range fetcherEnd.Messages() {
			var req fetchRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				continue
			}
			response, _ := json.Marshal(map[string]any{
				"type":          "__locationResponse",
				"screenName":    req.ScreenName,
				"requestId":     req.RequestID,
				"location":      location,
				"isRateLimited": rateLimited,
			})
			_ = fetcherEnd.Send(context.Background(), response)
		}
	}()
}

func TestFetchLocationRoundTrip(t *testing.T) {
	t.Parallel()

	bridgeEnd, fetcherEnd := pagebridge.NewLoopbackPair()
	window := ratelimiting.NewWindow()
	bridge := pagebridge.New(bridgeEnd, window, testLogger(), time.Now, neverFire)
	defer bridge.Close()

	paris := "Paris, France"
	respondWith(t, fetcherEnd, &paris, false)

	result, err := bridge.FetchLocation(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, result.Location)
	assert.Equal(t, "Paris, France", *result.Location)
	assert.False(t, result.RateLimited)
	assert.False(t, window.Active(time.Now()))
}

func TestFetchLocationNoLocation(t *testing.T) {
	t.Parallel()

	bridgeEnd, fetcherEnd := pagebridge.NewLoopbackPair()
	bridge := pagebridge.New(bridgeEnd, ratelimiting.NewWindow(), testLogger(), time.Now, neverFire)
	defer bridge.Close()

	respondWith(t, fetcherEnd, nil, false)

	result, err := bridge.FetchLocation(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, result.Location)
	assert.False(t, result.RateLimited)
}

func TestFetchLocationRateLimitedResponse(t *testing.T) {
	t.Parallel()

	bridgeEnd, fetcherEnd := pagebridge.NewLoopbackPair()
	window := ratelimiting.NewWindow()
	bridge := pagebridge.New(bridgeEnd, window, testLogger(), time.Now, neverFire)
	defer bridge.Close()

	respondWith(t, fetcherEnd, nil, true)

	result, err := bridge.FetchLocation(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, result.RateLimited)
	// The correlated response alone does not declare a cool-down.
	assert.False(t, window.Active(time.Now()))
}

func TestFetchLocationTimeout(t *testing.T) {
	t.Parallel()

	bridgeEnd, _ := pagebridge.NewLoopbackPair()
	bridge := pagebridge.New(bridgeEnd, ratelimiting.NewWindow(), testLogger(), time.Now, fireImmediately)
	defer bridge.Close()

	// Nobody answers: the lookup resolves with no data instead of failing.
	result, err := bridge.FetchLocation(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, result.Location)
	assert.False(t, result.RateLimited)
}

func TestFetchLocationMismatchedHandleDropped(t *testing.T) {
	t.Parallel()

	bridgeEnd, fetcherEnd := pagebridge.NewLoopbackPair()
	bridge := pagebridge.New(bridgeEnd, ratelimiting.NewWindow(), testLogger(), time.Now, fireImmediately)
	defer bridge.Close()

	go func() {
		for payload := range fetcherEnd.Messages() {
			var req fetchRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				continue
			}
			mallory := "Mallory's place"
			response, _ := json.Marshal(map[string]any{
				"type":          "__locationResponse",
				"screenName":    "mallory",
				"requestId":     req.RequestID,
				"location":      &mallory,
				"isRateLimited": false,
			})
			_ = fetcherEnd.Send(context.Background(), response)
		}
	}()

	result, err := bridge.FetchLocation(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, result.Location)
}

func TestConcurrentRequestsCorrelatedByID(t *testing.T) {
	t.Parallel()

	bridgeEnd, fetcherEnd := pagebridge.NewLoopbackPair()
	bridge := pagebridge.New(bridgeEnd, ratelimiting.NewWindow(), testLogger(), time.Now, neverFire)
	defer bridge.Close()

	locations := map[string]string{
		"alice": "Paris, France",
		"bob":   "Oslo, Norway",
	}
	// Answer each request with its own handle's location.
	go func() {
		for payload := range fetcherEnd.Messages() {
			var req fetchRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				continue
			}
			location := locations[req.ScreenName]
			response, _ := json.Marshal(map[string]any{
				"type":          "__locationResponse",
				"screenName":    req.ScreenName,
				"requestId":     req.RequestID,
				"location":      &location,
				"isRateLimited": false,
			})
			_ = fetcherEnd.Send(context.Background(), response)
		}
	}()

	type outcome struct {
		handle string
		result domain.LookupResult
		err    error
	}
	results := make(chan outcome, 2)
	for _, handle := range []string{"alice", "bob"} {
		go func(handle string) {
			result, err := bridge.FetchLocation(context.Background(), handle)
			results <- outcome{handle: handle, result: result, err: err}
		}(handle)
	}

	for i := 0; i < 2; i++ {
		select {
		case out := <-results:
			require.NoError(t, out.err)
			require.NotNil(t, out.result.Location)
			assert.Equal(t, locations[out.handle], *out.result.Location)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for correlated responses")
		}
	}
}

func TestRateLimitInfoUpdatesWindow(t *testing.T) {
	t.Parallel()

	bridgeEnd, fetcherEnd := pagebridge.NewLoopbackPair()
	window := ratelimiting.NewWindow()
	bridge := pagebridge.New(bridgeEnd, window, testLogger(), time.Now, neverFire)
	defer bridge.Close()

	resetTime := time.Now().Add(2 * time.Minute)
	info, _ := json.Marshal(map[string]any{
		"type":      "__rateLimitInfo",
		"resetTime": resetTime.Unix(),
		"waitTime":  0,
	})
	require.NoError(t, fetcherEnd.Send(context.Background(), info))

	require.Eventually(t, func() bool {
		return window.Active(time.Now())
	}, time.Second, 10*time.Millisecond)

	// Zero reset time clears the cool-down.
	clear, _ := json.Marshal(map[string]any{
		"type":      "__rateLimitInfo",
		"resetTime": 0,
		"waitTime":  0,
	})
	require.NoError(t, fetcherEnd.Send(context.Background(), clear))

	require.Eventually(t, func() bool {
		return !window.Active(time.Now())
	}, time.Second, 10*time.Millisecond)
}

package ports_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matshaug/flagline/internal/adapters/cachestore"
	"github.com/matshaug/flagline/internal/dispatch"
	"github.com/matshaug/flagline/internal/ports"
	"github.com/matshaug/flagline/internal/ratelimiting"
	"github.com/matshaug/flagline/internal/watch"
)

func neverFire(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}

func TestStatusHandler(t *testing.T) {
	t.Parallel()

	now := time.Now()
	nowFunc := func() time.Time { return now }

	watcher := watch.NewWatcher(func() {}, neverFire)
	store := cachestore.New(cachestore.NewStubSnapshotStore(), testLogger(), nowFunc, neverFire)

	location := "Paris, France"
	store.Set("alice", &location)

	window := ratelimiting.NewWindow()
	limiter := ratelimiting.NewDispatchLimiter(2, 0, window, nowFunc, neverFire)
	queue := dispatch.NewQueue(nil, limiter, window, nil, nowFunc)
	t.Cleanup(queue.Close)

	handler := ports.MakeStatusHandler(watcher, store, queue, window, nowFunc, testLogger(), noopSentryMiddleware)

	t.Run("reports runtime state", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

		require.Equal(t, http.StatusOK, recorder.Code)

		var response struct {
			Success                 bool  `json:"success"`
			Enabled                 bool  `json:"enabled"`
			CacheEntries            int   `json:"cacheEntries"`
			QueueDepth              int   `json:"queueDepth"`
			CoolDownActive          bool  `json:"coolDownActive"`
			CoolDownRemainingMillis int64 `json:"coolDownRemainingMillis"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

		require.True(t, response.Success)
		require.True(t, response.Enabled)
		require.Equal(t, 1, response.CacheEntries)
		require.Zero(t, response.QueueDepth)
		require.False(t, response.CoolDownActive)
	})

	t.Run("reports active cool-down", func(t *testing.T) {
		window.Set(now.Add(90 * time.Second))

		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

		var response struct {
			CoolDownActive          bool  `json:"coolDownActive"`
			CoolDownRemainingMillis int64 `json:"coolDownRemainingMillis"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

		require.True(t, response.CoolDownActive)
		require.Equal(t, int64(90_000), response.CoolDownRemainingMillis)

		window.Clear()
	})

	t.Run("wrong method is rejected", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodPost, "/v1/status", nil))
		require.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
	})
}

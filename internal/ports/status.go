package ports

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/matshaug/flagline/internal/adapters/cachestore"
	"github.com/matshaug/flagline/internal/dispatch"
	"github.com/matshaug/flagline/internal/logging"
	"github.com/matshaug/flagline/internal/ratelimiting"
	"github.com/matshaug/flagline/internal/reporting"
	"github.com/matshaug/flagline/internal/watch"
)

type statusResponse struct {
	Success                 bool  `json:"success"`
	Enabled                 bool  `json:"enabled"`
	CacheEntries            int   `json:"cacheEntries"`
	QueueDepth              int   `json:"queueDepth"`
	CoolDownActive          bool  `json:"coolDownActive"`
	CoolDownRemainingMillis int64 `json:"coolDownRemainingMillis,omitempty"`
}

func MakeStatusHandler(
	watcher *watch.Watcher,
	store *cachestore.Store,
	queue *dispatch.Queue,
	window *ratelimiting.Window,
	nowFunc func() time.Time,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware(),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("status"),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		if r.Method != http.MethodGet {
			statusCode := writeErrorResponse(ctx, w, "Method not allowed", http.StatusMethodNotAllowed)
			logger.InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		remaining := window.Until(nowFunc())
		response, err := json.Marshal(statusResponse{
			Success:                 true,
			Enabled:                 watcher.Enabled(),
			CacheEntries:            store.Len(),
			QueueDepth:              queue.Depth(),
			CoolDownActive:          remaining > 0,
			CoolDownRemainingMillis: remaining.Milliseconds(),
		})
		if err != nil {
			reporting.Report(ctx, fmt.Errorf("failed to marshal status response: %w", err))
			writeErrorResponse(ctx, w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}

		logger.InfoContext(ctx, "Returning response", "statusCode", http.StatusOK, "reason", "success")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(response)
	}

	return middleware(handler)
}

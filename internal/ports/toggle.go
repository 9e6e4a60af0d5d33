package ports

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/matshaug/flagline/internal/app"
	"github.com/matshaug/flagline/internal/logging"
	"github.com/matshaug/flagline/internal/reporting"
)

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

type toggleResponse struct {
	Success bool `json:"success"`
	Enabled bool `json:"enabled"`
}

func MakeToggleHandler(
	toggle app.Toggle,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware(),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("toggle"),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		if r.Method != http.MethodPost {
			statusCode := writeErrorResponse(ctx, w, "Method not allowed", http.StatusMethodNotAllowed)
			logger.InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			reporting.Report(ctx, fmt.Errorf("failed to read request body: %w", err))
			writeErrorResponse(ctx, w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		var request toggleRequest
		if err := json.Unmarshal(body, &request); err != nil {
			writeErrorResponse(ctx, w, "Failed to parse request body", http.StatusBadRequest)
			return
		}

		toggle(ctx, request.Enabled)

		response, err := json.Marshal(toggleResponse{Success: true, Enabled: request.Enabled})
		if err != nil {
			reporting.Report(ctx, fmt.Errorf("failed to marshal toggle response: %w", err))
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

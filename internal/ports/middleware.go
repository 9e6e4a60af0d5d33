// Package ports exposes the control surface over HTTP: toggling annotation
// on or off and reporting runtime status.
package ports

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/matshaug/flagline/internal/logging"
)

func ComposeMiddlewares(middlewares ...func(http.HandlerFunc) http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	if len(middlewares) == 1 {
		return middlewares[0]
	}
	first := middlewares[0]
	rest := ComposeMiddlewares(middlewares[1:]...)
	return func(h http.HandlerFunc) http.HandlerFunc {
		return first(rest(h))
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Cause   string `json:"cause"`
}

func writeErrorResponse(ctx context.Context, w http.ResponseWriter, cause string, statusCode int) int {
	body, err := json.Marshal(errorResponse{Success: false, Cause: cause})
	if err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "Failed to marshal error response", "error", err.Error())
		http.Error(w, cause, statusCode)
		return statusCode
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(body)
	return statusCode
}

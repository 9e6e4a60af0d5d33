package reporting

import (
	"net/http"
	"time"
)

// NewAddMetaMiddleware stamps reports from the wrapped handler with the
// control endpoint name and the request start time, so control-surface
// reports stay distinguishable from bridge- and scan-side ones.
func NewAddMetaMiddleware(endpoint string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx := SetStartedAtInContext(r.Context(), time.Now())
			ctx = AddTagsToContext(ctx, map[string]string{
				"surface":  "control",
				"endpoint": endpoint,
			})

			next(w, r.WithContext(ctx))
		}
	}
}

package ports_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matshaug/flagline/internal/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func noopSentryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return next
}

func TestToggleHandler(t *testing.T) {
	t.Parallel()

	t.Run("valid request runs the toggle", func(t *testing.T) {
		t.Parallel()

		var toggledTo *bool
		toggle := func(ctx context.Context, enabled bool) {
			toggledTo = &enabled
		}

		handler := ports.MakeToggleHandler(toggle, testLogger(), noopSentryMiddleware)

		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodPost, "/v1/toggle", strings.NewReader(`{"enabled":false}`)))

		require.Equal(t, http.StatusOK, recorder.Code)
		require.JSONEq(t, `{"success":true,"enabled":false}`, recorder.Body.String())
		require.NotNil(t, toggledTo)
		require.False(t, *toggledTo)
	})

	t.Run("wrong method is rejected", func(t *testing.T) {
		t.Parallel()

		toggle := func(ctx context.Context, enabled bool) {
			t.Fatal("should not be called")
		}

		handler := ports.MakeToggleHandler(toggle, testLogger(), noopSentryMiddleware)

		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodGet, "/v1/toggle", nil))

		require.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
		require.JSONEq(t, `{"success":false,"cause":"Method not allowed"}`, recorder.Body.String())
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		t.Parallel()

		toggle := func(ctx context.Context, enabled bool) {
			t.Fatal("should not be called")
		}

		handler := ports.MakeToggleHandler(toggle, testLogger(), noopSentryMiddleware)

		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodPost, "/v1/toggle", strings.NewReader(`{"enabled":`)))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

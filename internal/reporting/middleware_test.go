package reporting

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddMetaMiddleware(t *testing.T) {
	t.Parallel()

	var meta ReportingMeta
	handler := NewAddMetaMiddleware("toggle")(func(w http.ResponseWriter, r *http.Request) {
		meta = MetaFromContext(r.Context())
	})

	request := httptest.NewRequest(http.MethodPost, "/v1/toggle", nil)
	handler(httptest.NewRecorder(), request)

	assert.Equal(t, "control", meta.tags["surface"])
	assert.Equal(t, "toggle", meta.tags["endpoint"])
	require.False(t, meta.startedAt.IsZero())
}

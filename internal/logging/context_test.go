package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/matshaug/flagline/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextFallback(t *testing.T) {
	t.Parallel()

	logger := logging.FromContext(context.Background())
	require.NotNil(t, logger)
}

func TestAddToContextRoundTrip(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	ctx := logging.AddToContext(context.Background(), logger)
	logging.FromContext(ctx).Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
}

func TestAddMetaToContext(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	ctx := logging.AddToContext(context.Background(), logger)
	ctx = logging.AddMetaToContext(ctx, slog.String("handle", "alice"))
	logging.FromContext(ctx).Info("resolving")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "resolving", entry["msg"])
	assert.Equal(t, "alice", entry["handle"])
}

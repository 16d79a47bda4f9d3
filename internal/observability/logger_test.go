package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/PabloGalante/chatplanner/internal/observability"
)

func TestLoggerFromContextAddsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := observability.Logger()
	observability.SetLogger(zap.New(core).Sugar())
	t.Cleanup(func() { observability.SetLogger(prev) })

	ctx := observability.WithRequestID(context.Background(), "req-1")
	observability.LoggerFromContext(ctx).Infow("hello", "k", "v")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "v", entries[0].ContextMap()["k"])
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := observability.Setup("loud", false)
	assert.Error(t, err)
}

func TestWithFieldsKeepsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := observability.Logger()
	observability.SetLogger(zap.New(core).Sugar())
	t.Cleanup(func() { observability.SetLogger(prev) })

	ctx := observability.WithRequestID(context.Background(), "req-2")
	observability.WithFields(ctx, "client_id", "42").Infow("handled")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-2", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "42", entries[0].ContextMap()["client_id"])
}

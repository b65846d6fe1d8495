package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "ochotona/internal/core/context"
)

func TestFromContext_AddsTraceFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &Logger{zap.New(core).Sugar()}

	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})
	ctx = WithLogger(ctx, log.WithEntity("storage"))

	Error(ctx, "fetch failed", "count", 2)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "t-1", fields["trace_id"])
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, "storage", fields["entity"])
	assert.Equal(t, int64(2), fields["count"])
}

func TestNew_FallsBackToInfoOnBadLevel(t *testing.T) {
	log, err := New(Config{Level: "loud", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, log.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Desugar().Core().Enabled(zapcore.InfoLevel))
}

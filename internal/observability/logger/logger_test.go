package logger

import (
	"context"
	"testing"

	"github.com/smallbiznis/followup/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := correlation.ContextWithCorrelationID(context.Background(), "01HZZZ")
	ctx = correlation.ContextWithActor(ctx, "observer-1")
	ctx = correlation.ContextWithRemoteSpan(ctx, "4bf92f3577b34da6a3ce929d0e0e4736", "00f067aa0ba902b7")

	WithContext(ctx, base).Info("dispatch.submit")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "01HZZZ", fields["correlation_id"])
	assert.Equal(t, "observer-1", fields["actor_id"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
}

func TestWithContextWithoutMetadataReturnsBase(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, WithContext(context.Background(), base))
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	require.Error(t, err)
}

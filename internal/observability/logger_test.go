package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/davidbz/switchboard/internal/observability"
)

func TestInitLogger(t *testing.T) {
	t.Run("should build a logger at the configured level", func(t *testing.T) {
		logger, err := observability.InitLogger(&observability.LogConfig{Level: "warn"})

		require.NoError(t, err)
		require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		require.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("should reject an unknown level", func(t *testing.T) {
		_, err := observability.InitLogger(&observability.LogConfig{Level: "loud"})

		require.Error(t, err)
	})

	t.Run("should default to info without config", func(t *testing.T) {
		logger, err := observability.InitLogger(nil)

		require.NoError(t, err)
		require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	})
}

func TestFromContext(t *testing.T) {
	t.Run("should attach request scoped fields", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		observability.SetLogger(zap.New(core))
		t.Cleanup(func() { observability.SetLogger(zap.NewNop()) })

		ctx := context.Background()
		ctx = observability.WithRequestID(ctx, "req-1")
		ctx = observability.WithProvider(ctx, "echo")
		ctx = observability.WithCapability(ctx, "text_generation")

		observability.FromContext(ctx).Info("hello")

		require.Equal(t, 1, logs.Len())
		fields := logs.All()[0].ContextMap()
		require.Equal(t, "req-1", fields["request_id"])
		require.Equal(t, "echo", fields["provider"])
		require.Equal(t, "text_generation", fields["capability"])
		require.NotContains(t, fields, "trace_id")
	})
}

func TestEventBus_Publish(t *testing.T) {
	t.Run("should log the event with its data", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		bus := observability.NewEventBus(zap.New(core))

		ctx := observability.WithTraceID(context.Background(), "trace-1")
		bus.Publish(ctx, observability.EventProviderSelected, map[string]interface{}{
			"provider_id": "echo",
			"attempt":     1,
		})

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		require.Equal(t, observability.EventProviderSelected, entry.Message)

		fields := entry.ContextMap()
		require.Equal(t, observability.EventProviderSelected, fields["event"])
		require.Equal(t, "echo", fields["provider_id"])
		require.Equal(t, "trace-1", fields["trace_id"])
	})

	t.Run("should ignore a nil bus", func(t *testing.T) {
		var bus *observability.EventBus

		require.NotPanics(t, func() {
			bus.Publish(context.Background(), observability.EventAttemptFailed, nil)
		})
	})
}

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitTracerNoopWhenUnconfigured(t *testing.T) {
	err := InitTracer(context.Background(), "hub-test", "")
	require.NoError(t, err)
}

func TestShutdownNoopWhenNeverInitialized(t *testing.T) {
	provider = nil
	require.NoError(t, Shutdown(context.Background()))
}

func TestInitTracerFailsFastOnUnreachableCollector(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := InitTracer(ctx, "hub-test", "127.0.0.1:1")
	require.Error(t, err)
}

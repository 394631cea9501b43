package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chatdocs/chatdocs/internal/log"
)

func TestSetupTracingDefaultEndpoint(t *testing.T) {
	t.Parallel()

	shutdown, err := SetupTracing(context.Background(), Config{
		Environment: "test",
		ServiceName: "chatdocs-test",
	}, log.NewNop())

	// Exporter construction is lazy; no collector needs to be running.
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestSetupTracingExplicitEndpoint(t *testing.T) {
	t.Parallel()

	shutdown, err := SetupTracing(context.Background(), Config{
		Endpoint: "127.0.0.1:4318",
	}, log.NewNop())

	require.NoError(t, err)
	require.NotNil(t, shutdown)
}

package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "ewu-hub", "", "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_Endpoint(t *testing.T) {
	// grpc.NewClient connects lazily, so no collector is needed here.
	shutdown, err := InitTracer(context.Background(), "ewu-hub", "localhost:4317", "test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

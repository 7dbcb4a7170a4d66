package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetMetrics_Singleton(t *testing.T) {
	m := GetMetrics()
	require.NotNil(t, m)
	require.Same(t, m, GetMetrics())

	require.NotNil(t, m.BuildsTotal)
	require.NotNil(t, m.BuildDuration)
	require.NotNil(t, m.PageRenderErrors)

	// noop providers accept measurements before InitTelemetry
	ctx := context.Background()
	m.BuildsTotal.Add(ctx, 1)
	m.BuildDuration.Record(ctx, 12.5)
}

func TestTracer(t *testing.T) {
	_, span := Tracer().Start(context.Background(), "bundler.build")
	defer span.End()
	require.NotNil(t, span)
}

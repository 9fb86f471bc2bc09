package common

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/gtool/internal/config"
	"github.com/teemow/gtool/internal/instrumentation"
	"github.com/teemow/gtool/internal/logging"
	"github.com/teemow/gtool/internal/scheduler"
	"github.com/teemow/gtool/internal/server"
)

func newServerContext(t *testing.T, metrics *instrumentation.Metrics) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), server.Dependencies{
		Config:    config.Default(),
		Scheduler: scheduler.New(scheduler.BusyTimeProviderFunc(nil), nil),
		Metrics:   metrics,
		Logger:    logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func invocationsByStatus(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "mcp_tool_invocations_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value("status")
				out[status.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc := newServerContext(t, nil)

	called := false
	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, called)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc := newServerContext(t, nil)
	expectedErr := errors.New("test error")

	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	})

	_, err := wrapped(context.Background(), mcp.CallToolRequest{})
	assert.ErrorIs(t, err, expectedErr)
}

func TestInstrumentedToolHandler_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := instrumentation.NewMetrics(mp.Meter("test"), false)
	require.NoError(t, err)
	sc := newServerContext(t, metrics)

	ok := InstrumentedToolHandler("ok_tool", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	})
	failing := InstrumentedToolHandler("failing_tool", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("error message"), nil
	})

	_, err = ok(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	result, err := failing(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	assert.Equal(t, map[string]int64{
		instrumentation.StatusSuccess: 1,
		instrumentation.StatusError:   1,
	}, invocationsByStatus(t, reader))
}

package common

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/gtool/internal/instrumentation"
	"github.com/teemow/gtool/internal/logging"
	"github.com/teemow/gtool/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with a span, invocation
// metrics and a log line per call. A result with IsError set counts as a
// failed invocation.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		start := time.Now()

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, status, duration)
		instrumentation.EndSpan(span, err)

		level := slog.LevelInfo
		if status == instrumentation.StatusError {
			level = slog.LevelWarn
		}
		attrs := []slog.Attr{logging.Status(status), logging.Duration(duration), logging.Err(err)}
		if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
			attrs = append(attrs, slog.String("trace_id", traceID))
		}
		logging.WithTool(sc.Logger(), toolName).LogAttrs(ctx, level, "tool invocation", attrs...)

		return result, err
	}
}

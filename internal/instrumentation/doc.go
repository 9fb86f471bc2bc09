// Package instrumentation provides OpenTelemetry metrics and tracing for gtool.
//
// # Metrics
//
// Google API metrics:
//   - google_api_operations_total: Google API calls by service, operation, status
//   - google_api_operation_duration_seconds: Google API call durations
//
// Retry metrics:
//   - google_api_retries_total: retries by operation and error category
//   - google_api_retry_attempts: attempts per wrapped call by operation and final status
//
// Scheduling metrics:
//   - free_slot_searches_total: searches by status
//   - free_slot_search_duration_seconds: search durations
//   - free_slots_found: slots returned per search
//
// MCP tool metrics:
//   - mcp_tool_invocations_total: tool calls by tool and status
//   - mcp_tool_duration_seconds: tool call durations
//
// Metrics implements retry.Observer and scheduler.Recorder so it can be
// handed straight to those packages.
//
// # Configuration
//
// Only `gtool serve` builds a Provider, from config.Config.Instrumentation:
//   - --metrics-addr selects the prometheus exporter for /metrics
//   - telemetry.metrics_exporter: otlp, stderr or none
//   - telemetry.tracing_exporter: otlp, stderr or none
//   - telemetry.otlp_endpoint, or OTEL_EXPORTER_OTLP_ENDPOINT
//   - telemetry.trace_sampling_rate (default: 0.1)
//
// Stdout carries the MCP protocol, so the debugging exporters write to stderr.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, cfg.Instrumentation(version, metricsAddr))
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	policy := retry.New(retry.WithObserver(provider.Metrics()))
package instrumentation

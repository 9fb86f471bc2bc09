// Package server holds the runtime state shared by the MCP tools of
// `gtool serve` and the optional HTTP listener that exposes Prometheus
// metrics and health checks.
//
// # Key Components
//
// ServerContext owns the configured scheduler and the Google API clients.
// The Gmail client is nil unless Gmail is enabled in the configuration.
//
// MetricsServer serves /metrics from the global Prometheus registry that
// the OpenTelemetry Prometheus exporter writes to, next to the /healthz and
// /readyz endpoints provided by HealthChecker.
package server

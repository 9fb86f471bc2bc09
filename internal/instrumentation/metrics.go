package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrCategory  = "category"
	attrTool      = "tool"
	attrDays      = "days"
)

// Metrics provides methods for recording observability metrics.
// The zero value records nothing.
type Metrics struct {
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	retriesTotal  metric.Int64Counter
	retryAttempts metric.Int64Histogram

	searchesTotal  metric.Int64Counter
	searchDuration metric.Float64Histogram
	slotsFound     metric.Int64Histogram

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.retriesTotal, err = meter.Int64Counter(
		"google_api_retries_total",
		metric.WithDescription("Total number of retried Google API calls by error category"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_retries_total counter: %w", err)
	}

	m.retryAttempts, err = meter.Int64Histogram(
		"google_api_retry_attempts",
		metric.WithDescription("Number of attempts made per retried call"),
		metric.WithUnit("{attempt}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 8),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_retry_attempts histogram: %w", err)
	}

	m.searchesTotal, err = meter.Int64Counter(
		"free_slot_searches_total",
		metric.WithDescription("Total number of free slot searches"),
		metric.WithUnit("{search}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create free_slot_searches_total counter: %w", err)
	}

	m.searchDuration, err = meter.Float64Histogram(
		"free_slot_search_duration_seconds",
		metric.WithDescription("Free slot search duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create free_slot_search_duration_seconds histogram: %w", err)
	}

	m.slotsFound, err = meter.Int64Histogram(
		"free_slots_found",
		metric.WithDescription("Number of free slots returned per search"),
		metric.WithUnit("{slot}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 20, 50),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create free_slots_found histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordGoogleAPIOperation records one Google API call.
//
// Parameters:
//   - service: Google service name (calendar, gmail)
//   - operation: Operation type (list, get, delete, freebusy)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)

	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRetry records one retry of operation after a failure of category.
func (m *Metrics) RecordRetry(ctx context.Context, operation, category string) {
	if m == nil || m.retriesTotal == nil {
		return
	}

	m.retriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrCategory, category),
	))
}

// RecordRetryOutcome records how many attempts a wrapped call needed.
func (m *Metrics) RecordRetryOutcome(ctx context.Context, operation, status string, attempts int) {
	if m == nil || m.retryAttempts == nil {
		return
	}

	m.retryAttempts.Record(ctx, int64(attempts), metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	))
}

// RecordFreeSlotSearch records one scheduler search.
func (m *Metrics) RecordFreeSlotSearch(ctx context.Context, status string, days, slots int, duration time.Duration) {
	if m == nil || m.searchesTotal == nil || m.searchDuration == nil || m.slotsFound == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrDays, strconv.Itoa(days)))
	}

	m.searchesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.searchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if status == StatusSuccess {
		m.slotsFound.Record(ctx, int64(slots), metric.WithAttributes(attrs...))
	}
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)

	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

package instrumentation

import (
	"fmt"
	"io"
)

// Exporter names. ExporterStderr replaces the usual stdout exporter because
// `gtool serve` speaks MCP on stdout.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStderr     = "stderr"
	ExporterNone       = "none"
)

// DefaultTraceSamplingRate is used when no sampling rate is configured.
const DefaultTraceSamplingRate = 0.1

// Constants for metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	ServiceGmail    = "gmail"
	ServiceCalendar = "calendar"

	OperationList     = "list"
	OperationGet      = "get"
	OperationDelete   = "delete"
	OperationTrash    = "trash"
	OperationFreeBusy = "freebusy"
)

// Config selects where `gtool serve` sends telemetry. It is built by
// config.Config.Instrumentation; the zero value disables everything.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// MetricsExporter is ExporterPrometheus when serve exposes /metrics,
	// ExporterOTLP, ExporterStderr or ExporterNone.
	MetricsExporter string

	// TracingExporter is ExporterOTLP, ExporterStderr or ExporterNone.
	TracingExporter string

	// OTLPEndpoint is host:port of an OTLP/HTTP collector.
	OTLPEndpoint string
	OTLPInsecure bool

	TraceSamplingRate float64

	// DetailedLabels adds the number of searched days as a label on search metrics.
	DetailedLabels bool

	// Stderr receives ExporterStderr output. Nil means os.Stderr.
	Stderr io.Writer
}

func active(exporter string) bool {
	return exporter != "" && exporter != ExporterNone
}

// MetricsEnabled reports whether metrics are exported anywhere.
func (c Config) MetricsEnabled() bool {
	return active(c.MetricsExporter)
}

// TracingEnabled reports whether spans are exported anywhere.
func (c Config) TracingEnabled() bool {
	return active(c.TracingExporter)
}

// Enabled reports whether a provider built from c records anything.
func (c Config) Enabled() bool {
	return c.MetricsEnabled() || c.TracingEnabled()
}

// Validate checks exporter names, the sampling rate and the OTLP endpoint.
func (c Config) Validate() error {
	switch c.MetricsExporter {
	case "", ExporterNone, ExporterPrometheus, ExporterOTLP, ExporterStderr:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stderr, none", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterNone, ExporterOTLP, ExporterStderr:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stderr, none", c.TracingExporter)
	}

	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.TraceSamplingRate)
	}

	if (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) && c.OTLPEndpoint == "" {
		return fmt.Errorf("an OTLP endpoint is required when using the otlp exporter")
	}

	return nil
}

package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultServiceName = "gtool"

// Provider owns the meter and tracer providers of `gtool serve`. A provider
// built from a Config with no exporters is disabled: its Metrics are a
// no-op recorder and Tracer returns a no-op tracer.
type Provider struct {
	config         Config
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *Metrics
	prometheus     bool
}

// NewProvider validates cfg and installs the configured exporters as the
// global otel providers.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}

	p := &Provider{config: cfg}
	if !cfg.Enabled() {
		p.metrics = &Metrics{}
		return p, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := p.initMeterProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}
	if err := p.initTracerProvider(ctx, res); err != nil {
		if shutdownErr := p.meterProvider.Shutdown(ctx); shutdownErr != nil {
			err = errors.Join(err, shutdownErr)
		}
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	otel.SetMeterProvider(p.meterProvider)
	otel.SetTracerProvider(p.tracerProvider)

	p.metrics, err = NewMetrics(p.meterProvider.Meter(cfg.ServiceName), cfg.DetailedLabels)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
	}
	return p, nil
}

// initMeterProvider attaches at most one reader. Without a metrics exporter
// the meter provider still exists so instruments can be created, but
// nothing is collected.
func (p *Provider) initMeterProvider(ctx context.Context, res *resource.Resource) error {
	opts := []metric.Option{metric.WithResource(res)}

	switch p.config.MetricsExporter {
	case ExporterPrometheus:
		// Registers with the default registry served by promhttp on /metrics.
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		p.prometheus = true
		opts = append(opts, metric.WithReader(exporter))

	case ExporterOTLP:
		httpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(p.config.OTLPEndpoint)}
		if p.config.OTLPInsecure {
			httpOpts = append(httpOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, httpOpts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		opts = append(opts, metric.WithReader(metric.NewPeriodicReader(exporter)))

	case ExporterStderr:
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(p.config.Stderr))
		if err != nil {
			return fmt.Errorf("failed to create stderr metrics exporter: %w", err)
		}
		opts = append(opts, metric.WithReader(metric.NewPeriodicReader(exporter)))
	}

	p.meterProvider = metric.NewMeterProvider(opts...)
	return nil
}

func (p *Provider) initTracerProvider(ctx context.Context, res *resource.Resource) error {
	var exporter sdktrace.SpanExporter

	switch p.config.TracingExporter {
	case ExporterOTLP:
		httpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(p.config.OTLPEndpoint)}
		if p.config.OTLPInsecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		var err error
		exporter, err = otlptracehttp.New(ctx, httpOpts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}

	case ExporterStderr:
		var err error
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(p.config.Stderr))
		if err != nil {
			return fmt.Errorf("failed to create stderr trace exporter: %w", err)
		}

	default:
		p.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.NeverSample()),
		)
		return nil
	}

	rate := p.config.TraceSamplingRate
	if rate == 0 {
		rate = DefaultTraceSamplingRate
	}
	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	)
	return nil
}

// Metrics returns the metrics recorder. It is never nil.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Tracer returns a tracer for creating spans.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.tracerProvider.Tracer(name)
}

// HasPrometheusExporter reports whether metrics are exposed through the
// default Prometheus registry, which the metrics server requires.
func (p *Provider) HasPrometheusExporter() bool {
	return p.prometheus
}

// Shutdown flushes pending telemetry and stops the exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Enabled reports whether any exporter is configured.
func (p *Provider) Enabled() bool {
	return p.config.Enabled()
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teemow/gtool/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is the default address for the metrics server.
	DefaultMetricsAddr = "127.0.0.1:9090"

	// DefaultMetricsReadTimeout is the default read timeout for the metrics server.
	DefaultMetricsReadTimeout = 10 * time.Second

	// DefaultMetricsWriteTimeout is the default write timeout for the metrics server.
	DefaultMetricsWriteTimeout = 10 * time.Second

	// DefaultMetricsIdleTimeout is the default idle timeout for the metrics server.
	DefaultMetricsIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown.
	DefaultShutdownTimeout = 5 * time.Second
)

// MetricsServerConfig holds configuration for the metrics server.
type MetricsServerConfig struct {
	// Addr is the address to bind the metrics server to (e.g., "127.0.0.1:9090").
	Addr string

	// InstrumentationProvider must be enabled with the Prometheus exporter.
	InstrumentationProvider *instrumentation.Provider

	// Health adds /healthz and /readyz when set.
	Health *HealthChecker

	Logger *slog.Logger
}

// MetricsServer serves Prometheus metrics on a dedicated port.
type MetricsServer struct {
	httpServer *http.Server
	addr       string
	health     *HealthChecker
	logger     *slog.Logger
}

// NewMetricsServer creates a new metrics server with the given configuration.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}

	if config.InstrumentationProvider == nil {
		return nil, fmt.Errorf("instrumentation provider is required for metrics server")
	}

	if !config.InstrumentationProvider.Enabled() {
		return nil, fmt.Errorf("instrumentation provider is not enabled")
	}

	if !config.InstrumentationProvider.HasPrometheusExporter() {
		return nil, fmt.Errorf("metrics server requires the prometheus exporter")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &MetricsServer{
		addr:   config.Addr,
		health: config.Health,
		logger: logger,
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultMetricsReadTimeout,
		WriteTimeout:      DefaultMetricsWriteTimeout,
		IdleTimeout:       DefaultMetricsIdleTimeout,
	}
	return s, nil
}

// Handler returns the mux served by the metrics server.
func (s *MetricsServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// The OpenTelemetry prometheus exporter registers to the global registry.
	mux.Handle("/metrics", promhttp.Handler())

	if s.health != nil {
		s.health.RegisterHealthEndpoints(mux)
	} else {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	}

	return mux
}

// Start listens on the configured address and serves until Shutdown.
// It returns nil after a graceful shutdown.
func (s *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *MetricsServer) Serve(ln net.Listener) error {
	s.logger.Info("starting metrics server", slog.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured address for the metrics server.
func (s *MetricsServer) Addr() string {
	return s.addr
}

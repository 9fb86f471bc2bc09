package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gtool/internal/config"
	"github.com/teemow/gtool/internal/google"
	"github.com/teemow/gtool/internal/instrumentation"
	"github.com/teemow/gtool/internal/logging"
	"github.com/teemow/gtool/internal/resources"
	"github.com/teemow/gtool/internal/scheduler"
	"github.com/teemow/gtool/internal/server"
	"github.com/teemow/gtool/internal/tools/calendar_tools"
	"github.com/teemow/gtool/internal/tools/gmail_tools"
)

// shutdownTimeout bounds the graceful shutdown of the metrics listener and
// the telemetry exporters.
const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server on standard input/output to
provide free slot search, calendar and Gmail tools for AI assistants.

Gmail tools are only functional when a Gmail scope is configured.

Metrics:
  --metrics-addr starts a listener with Prometheus metrics on /metrics and
  health checks on /healthz and /readyz. The telemetry section of the
  config file selects OTLP or stderr exporters for metrics and traces;
  OTEL_EXPORTER_OTLP_ENDPOINT is used when no otlp_endpoint is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address for the metrics and health listener, e.g. "+server.DefaultMetricsAddr+" (disabled when empty)")
	return cmd
}

func runServe(ctx context.Context, metricsAddr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	provider, err := instrumentation.NewProvider(ctx, cfg.Instrumentation(version, metricsAddr))
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
	}

	policy := newPolicy(cfg, logger, metrics)
	c, err := newClients(ctx, cfg, policy, metrics, logger)
	if err != nil {
		return err
	}

	sched := scheduler.New(c.calendar, policy,
		scheduler.WithLogger(logger),
		scheduler.WithConcurrency(cfg.Concurrency),
		scheduler.WithMetrics(metrics))

	serverContext, err := server.NewServerContext(ctx, server.Dependencies{
		Config:    cfg,
		Scheduler: sched,
		Calendar:  c.calendar,
		Gmail:     c.gmail,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	if metricsAddr != "" {
		metricsServer, err := startMetricsServer(metricsAddr, provider, serverContext, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	mcpSrv := mcpserver.NewMCPServer("gtool", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	logger.Debug("starting MCP server on stdio", slog.Bool("gmail", c.gmail != nil))
	return runStdioServer(mcpSrv)
}

// startMetricsServer binds addr before returning so address errors are
// reported immediately, then serves in the background.
func startMetricsServer(addr string, provider *instrumentation.Provider, sc *server.ServerContext, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		Health:                  server.NewHealthChecker(sc, tokenCheck(sc.Config())),
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	ln, err := net.Listen("tcp", metricsServer.Addr())
	if err != nil {
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	}
	go func() {
		if err := metricsServer.Serve(ln); err != nil {
			logger.Error("metrics server stopped", logging.Err(err))
		}
	}()
	return metricsServer, nil
}

// tokenCheck reports whether the token file still loads, so /readyz turns
// unready after `gtool auth logout`.
func tokenCheck(cfg *config.Config) server.TokenCheck {
	store := google.NewTokenStore(cfg.TokenFile)
	return func() error {
		_, _, err := store.Load()
		return err
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Calendar",
			register: func() error {
				return calendar_tools.RegisterCalendarTools(mcpSrv, sc)
			},
		},
		{
			name: "Gmail",
			register: func() error {
				return gmail_tools.RegisterGmailTools(mcpSrv, sc)
			},
		},
		{
			name: "User Resources",
			register: func() error {
				return resources.RegisterUserResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

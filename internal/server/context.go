package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/gtool/internal/calendar"
	"github.com/teemow/gtool/internal/config"
	"github.com/teemow/gtool/internal/gmail"
	"github.com/teemow/gtool/internal/instrumentation"
	"github.com/teemow/gtool/internal/scheduler"
)

// ErrGmailDisabled is returned by Gmail when no Gmail client is configured.
var ErrGmailDisabled = errors.New("gmail is not enabled; add a gmail scope and run 'gtool auth login'")

// Dependencies are the collaborators a ServerContext is built from.
type Dependencies struct {
	Config    *config.Config
	Scheduler *scheduler.Scheduler
	Calendar  *calendar.Client
	Gmail     *gmail.Client
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger
}

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	config    *config.Config
	scheduler *scheduler.Scheduler
	calendar  *calendar.Client
	gmail     *gmail.Client
	metrics   *instrumentation.Metrics
	logger    *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, deps Dependencies) (*ServerContext, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.Scheduler == nil {
		return nil, errors.New("scheduler is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		config:    deps.Config,
		scheduler: deps.Scheduler,
		calendar:  deps.Calendar,
		gmail:     deps.Gmail,
		metrics:   deps.Metrics,
		logger:    logger,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the loaded configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.config
}

// Scheduler returns the free-slot scheduler.
func (sc *ServerContext) Scheduler() *scheduler.Scheduler {
	return sc.scheduler
}

// Calendar returns the Calendar client.
func (sc *ServerContext) Calendar() *calendar.Client {
	return sc.calendar
}

// Gmail returns the Gmail client, or ErrGmailDisabled.
func (sc *ServerContext) Gmail() (*gmail.Client, error) {
	if sc.gmail == nil {
		return nil, ErrGmailDisabled
	}
	return sc.gmail, nil
}

// Metrics returns the metrics recorder. It may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}

// IsShutdown returns whether the server context has been shut down
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/gtool/internal/calendar"
	"github.com/teemow/gtool/internal/config"
	"github.com/teemow/gtool/internal/gmail"
	"github.com/teemow/gtool/internal/google"
	"github.com/teemow/gtool/internal/instrumentation"
	"github.com/teemow/gtool/internal/logging"
	"github.com/teemow/gtool/internal/retry"
)

// rootCmd represents the base command for the gtool application
var rootCmd = &cobra.Command{
	Use:   "gtool",
	Short: "Find free meeting time in Google Calendar and manage Gmail messages",
	Long: `gtool finds open meeting time across one or more Google calendars and
manages Gmail messages from the command line.

It can run as:
  - A standalone CLI tool (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(os.Stderr, debugLogging)
	},
}

var (
	// version will be set by main
	version = "dev"

	configPath   string
	debugLogging bool
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gtool version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newFreeCmd())
	rootCmd.AddCommand(newGetCalendarsCmd())
	rootCmd.AddCommand(newShowEventsCmd())
	rootCmd.AddCommand(newGmailCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadConfig loads and validates the configuration selected by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newPolicy builds the retry policy for cfg. metrics may be nil.
func newPolicy(cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) *retry.Policy {
	opts := append(cfg.RetryOptions(), retry.WithLogger(logger))
	if metrics != nil {
		opts = append(opts, retry.WithObserver(metrics))
	}
	return retry.New(opts...)
}

func newAuthenticator(cfg *config.Config, logger *slog.Logger) (*google.Authenticator, error) {
	return google.NewAuthenticator(
		cfg.CredentialsFile,
		google.ResolveScopes(cfg.Scopes),
		google.NewTokenStore(cfg.TokenFile),
		google.WithAuthLogger(logger),
	)
}

// clients holds the API clients shared by a command.
type clients struct {
	calendar *calendar.Client
	gmail    *gmail.Client
}

// newClients authorizes with the stored token and creates the Calendar
// client, plus the Gmail client when Gmail is enabled.
func newClients(ctx context.Context, cfg *config.Config, policy *retry.Policy, metrics *instrumentation.Metrics, logger *slog.Logger) (*clients, error) {
	auth, err := newAuthenticator(cfg, logger)
	if err != nil {
		return nil, err
	}
	httpClient, err := auth.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}

	cal, err := calendar.NewClient(ctx, httpClient,
		calendar.WithPolicy(policy),
		calendar.WithMetrics(metrics),
		calendar.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	c := &clients{calendar: cal}
	if cfg.IsGmailEnabled() {
		c.gmail, err = gmail.NewClient(ctx, httpClient,
			gmail.WithPolicy(policy),
			gmail.WithMetrics(metrics),
			gmail.WithLogger(logger))
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

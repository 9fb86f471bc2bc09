package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teemow/gtool/internal/config"
	"github.com/teemow/gtool/internal/google"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and print the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

// configInitOptions holds the flags of 'gtool config init'.
type configInitOptions struct {
	force           bool
	credentialsFile string
	timeZone        string
	calendars       []string
	gmail           string
}

func newConfigInitCmd() *cobra.Command {
	var opts configInitOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Example: `  gtool config init --timezone Europe/Berlin
  gtool config init --calendar primary --calendar team@example.com --gmail readonly`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultPath()
			}

			if _, err := os.Stat(path); err == nil && !opts.force {
				return fmt.Errorf("config file %s already exists, use --force to overwrite it", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cfg, err := initialConfig(opts)
			if err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", path)
			if _, err := os.Stat(cfg.CredentialsFile); err != nil {
				fmt.Fprintf(out, "Next, save your OAuth client JSON as %s and run 'gtool auth login'.\n", cfg.CredentialsFile)
			} else {
				fmt.Fprintln(out, "Next, run 'gtool auth login'.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing config file")
	cmd.Flags().StringVar(&opts.credentialsFile, "credentials", "", "Path to the OAuth client JSON")
	cmd.Flags().StringVar(&opts.timeZone, "timezone", "", "IANA timezone for free slot searches")
	cmd.Flags().StringSliceVarP(&opts.calendars, "calendar", "c", nil, "Calendar ID to search; repeat for more")
	cmd.Flags().StringVar(&opts.gmail, "gmail", "", "Enable Gmail with the given access: readonly or modify")
	return cmd
}

// initialConfig applies opts to the default configuration and validates it.
func initialConfig(opts configInitOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.credentialsFile != "" {
		cfg.CredentialsFile = opts.credentialsFile
	}
	if opts.timeZone != "" {
		cfg.TimeZone = opts.timeZone
	}
	if len(opts.calendars) > 0 {
		cfg.CalendarIDs = opts.calendars
	}

	switch opts.gmail {
	case "":
	case config.GmailReadonly:
		cfg.GmailEnabled = true
		cfg.Scopes = append(cfg.Scopes, google.ScopeGmailReadonly)
	case config.GmailModify:
		cfg.GmailEnabled = true
		cfg.Scopes = append(cfg.Scopes, google.ScopeGmailModify)
	default:
		return nil, fmt.Errorf("%w: --gmail must be readonly or modify, got %q", config.ErrInvalidConfig, opts.gmail)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults and GTOOL_* environment overrides
have been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nWarning: %v\n", err)
			}
			return nil
		},
	}
}

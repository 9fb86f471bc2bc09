package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gtool/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize gtool with your Google account",
	}
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Run the OAuth consent flow and store the token",
		Long: `Open the Google consent page for the configured scopes and store the
resulting token in token_file. The browser is redirected to a temporary
listener on localhost.

Run this again after changing 'scopes' in the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			auth, err := newAuthenticator(cfg, slog.Default())
			if err != nil {
				return err
			}

			if _, err := auth.Login(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authorized. Token saved to %s\n", auth.Store().Path())
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored token and its scopes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			store := google.NewTokenStore(cfg.TokenFile)
			tok, granted, err := store.Load()
			if errors.Is(err, google.ErrNoToken) {
				fmt.Fprintf(out, "Not logged in (no token at %s).\nRun 'gtool auth login' to authorize gtool.\n", store.Path())
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Token file: %s\n", store.Path())
			switch {
			case tok.Expiry.IsZero():
				fmt.Fprintln(out, "Access token: no expiry")
			case tok.Expiry.Before(time.Now()):
				fmt.Fprintf(out, "Access token: expired at %s (refreshed on next use)\n", tok.Expiry.Format(time.RFC3339))
			default:
				fmt.Fprintf(out, "Access token: valid until %s\n", tok.Expiry.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "Refresh token: %t\n", tok.RefreshToken != "")

			fmt.Fprintln(out, "Granted scopes:")
			for _, s := range granted {
				fmt.Fprintf(out, "  %s\n", s)
			}
			if missing := google.MissingScopes(google.ResolveScopes(cfg.Scopes), granted); len(granted) > 0 && len(missing) > 0 {
				fmt.Fprintln(out, "Missing configured scopes:")
				for _, s := range missing {
					fmt.Fprintf(out, "  %s\n", s)
				}
				fmt.Fprintln(out, "Run 'gtool auth login' to grant them.")
			}
			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store := google.NewTokenStore(cfg.TokenFile)
			if err := store.Delete(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", store.Path())
			return nil
		},
	}
}

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/gtool/internal/config"
	"github.com/teemow/gtool/internal/format"
	"github.com/teemow/gtool/internal/gmail"
	"github.com/teemow/gtool/internal/google"
)

// Output formats of 'gtool gmail list'.
const (
	listFormatTable  = "table"
	listFormatSimple = "simple"
	listFormatJSON   = "json"
)

func newGmailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gmail",
		Short: "List, show and delete Gmail messages",
		Long: `Work with Gmail messages. Listing and showing messages requires the
gmail.readonly or gmail.modify scope, deleting requires gmail.modify.
Add the scope to 'scopes' in the config file and run 'gtool auth login'.`,
	}

	cmd.AddCommand(newGmailListCmd())
	cmd.AddCommand(newGmailShowMessageCmd())
	cmd.AddCommand(newGmailDeleteCmd())
	return cmd
}

// gmailClient returns a Gmail client if the configuration grants level.
func gmailClient(ctx context.Context, level string) (*gmail.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.HasGmailScope(level) {
		scope := google.ScopeGmailReadonly
		if level == config.GmailModify {
			scope = google.ScopeGmailModify
		}
		return nil, fmt.Errorf("%w: this command requires the %s scope; add it to scopes and run 'gtool auth login'",
			config.ErrInvalidConfig, scope)
	}

	logger := slog.Default()
	c, err := newClients(ctx, cfg, newPolicy(cfg, logger, nil), nil, logger)
	if err != nil {
		return nil, err
	}
	return c.gmail, nil
}

func newGmailListCmd() *cobra.Command {
	var (
		query        string
		label        string
		count        int
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		Example: `  gtool gmail list
  gtool gmail list --query "is:unread from:alice@example.com" --count 25
  gtool gmail list --label SENT --format simple`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case listFormatTable, listFormatSimple, listFormatJSON:
			default:
				return fmt.Errorf("invalid --format %q, must be one of table, simple, json", outputFormat)
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}

			client, err := gmailClient(cmd.Context(), config.GmailReadonly)
			if err != nil {
				return err
			}

			messages, err := client.ListMessages(cmd.Context(), gmail.ListOptions{
				Query: query,
				Label: label,
				Limit: count,
			})
			if err != nil {
				return err
			}
			return writeMessages(cmd.OutOrStdout(), messages, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Gmail search query")
	cmd.Flags().StringVarP(&label, "label", "l", "INBOX", "Label ID to list")
	cmd.Flags().IntVarP(&count, "count", "n", gmail.DefaultLimit, "Maximum number of messages")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", listFormatTable, "Output format: table, simple or json")
	return cmd
}

func writeMessages(w io.Writer, messages []gmail.MessageSummary, outputFormat string) error {
	if outputFormat == listFormatJSON {
		if messages == nil {
			messages = []gmail.MessageSummary{}
		}
		return format.JSON(w, messages)
	}
	if len(messages) == 0 {
		_, err := fmt.Fprintln(w, "No messages found.")
		return err
	}
	if outputFormat == listFormatSimple {
		return format.MessagesSimple(w, messages)
	}
	return format.Messages(w, messages)
}

func newGmailShowMessageCmd() *cobra.Command {
	var bodyFormat string

	cmd := &cobra.Command{
		Use:   "show-message MESSAGE_ID",
		Short: "Show a message with its body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := gmailClient(cmd.Context(), config.GmailReadonly)
			if err != nil {
				return err
			}

			msg, err := client.GetMessage(cmd.Context(), args[0], bodyFormat)
			if err != nil {
				return err
			}
			return format.Message(cmd.OutOrStdout(), msg)
		},
	}

	cmd.Flags().StringVarP(&bodyFormat, "format", "f", gmail.BodyText, "Body format: text or html")
	return cmd
}

func newGmailDeleteCmd() *cobra.Command {
	var (
		confirmed bool
		permanent bool
	)

	cmd := &cobra.Command{
		Use:   "delete MESSAGE_ID",
		Short: "Move a message to the trash",
		Long: `Move a message to the trash, or delete it permanently with --permanent.
Without --confirm you are asked before anything is changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messageID := args[0]

			if !confirmed {
				action := "Move message " + messageID + " to the trash"
				if permanent {
					action = "Permanently delete message " + messageID
				}
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), action+"?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			client, err := gmailClient(cmd.Context(), config.GmailModify)
			if err != nil {
				return err
			}

			if permanent {
				if err := client.DeleteMessage(cmd.Context(), messageID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted message %s.\n", messageID)
				return nil
			}

			if err := client.TrashMessage(cmd.Context(), messageID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved message %s to the trash.\n", messageID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "confirm", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&permanent, "permanent", false, "Delete permanently instead of moving to the trash")
	return cmd
}

// confirm asks a yes/no question on out and reads the answer from in.
// Anything but "y" or "yes" is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

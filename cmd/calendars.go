package cmd

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gtool/internal/calendar"
	"github.com/teemow/gtool/internal/daterange"
	"github.com/teemow/gtool/internal/format"
)

func newGetCalendarsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get-calendars",
		Short: "List the calendars you can access",
		Long: `List every calendar on your calendar list with its ID and your access role.
Use the IDs in calendar_ids or with 'gtool free --calendar'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := slog.Default()
			c, err := newClients(cmd.Context(), cfg, newPolicy(cfg, logger, nil), nil, logger)
			if err != nil {
				return err
			}

			calendars, err := c.calendar.ListCalendars(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return format.JSON(cmd.OutOrStdout(), calendars)
			}
			return format.Calendars(cmd.OutOrStdout(), calendars)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print calendars as JSON")
	return cmd
}

func newShowEventsCmd() *cobra.Command {
	var calendarIDs []string

	cmd := &cobra.Command{
		Use:   "show-events [RANGE]",
		Short: "Show events of your calendars",
		Long: `Show the events of the configured calendars grouped by date, with their
time range and duration. RANGE accepts the same values as 'gtool free'.`,
		Example: `  gtool show-events
  gtool show-events friday+2
  gtool show-events 2024-06-03 --calendar team@example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rangeExpr := ""
			if len(args) == 1 {
				rangeExpr = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(calendarIDs) == 0 {
				calendarIDs = cfg.CalendarIDs
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			r, err := daterange.Parse(rangeExpr, loc, time.Now())
			if err != nil {
				return err
			}

			logger := slog.Default()
			c, err := newClients(cmd.Context(), cfg, newPolicy(cfg, logger, nil), nil, logger)
			if err != nil {
				return err
			}

			return runShowEvents(cmd.Context(), cmd.OutOrStdout(), c.calendar, calendarIDs, r)
		},
	}

	cmd.Flags().StringSliceVarP(&calendarIDs, "calendar", "c", nil, "Calendar ID to include; repeat for more (default: from config)")
	return cmd
}

func runShowEvents(ctx context.Context, w io.Writer, client *calendar.Client, calendarIDs []string, r daterange.Range) error {
	events, err := client.ListEventsForCalendars(ctx, calendarIDs, r.Start, r.Until())
	if err != nil {
		return err
	}

	var names map[string]string
	if len(calendarIDs) > 1 {
		calendars, err := client.ListCalendars(ctx)
		if err != nil {
			return err
		}
		names = calendarNames(calendars)
	}

	return format.Events(w, events, names)
}

// calendarNames maps calendar ids to their display names. The primary
// calendar is also reachable under the "primary" alias.
func calendarNames(calendars []calendar.CalendarInfo) map[string]string {
	names := make(map[string]string, len(calendars)+1)
	for _, c := range calendars {
		names[c.ID] = c.Summary
		if c.Primary {
			names["primary"] = c.Summary
		}
	}
	return names
}

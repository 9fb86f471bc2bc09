package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gtool/internal/config"
	"github.com/teemow/gtool/internal/format"
	"github.com/teemow/gtool/internal/scheduler"
)

// freeOptions holds the flags of the free command.
type freeOptions struct {
	durationMinutes   int
	availabilityStart string
	availabilityEnd   string
	timeZone          string
	calendars         []string
	pretty            bool
	json              bool
}

func (o freeOptions) request(rangeExpr string) config.SearchRequest {
	return config.SearchRequest{
		Range:             rangeExpr,
		Duration:          time.Duration(o.durationMinutes) * time.Minute,
		AvailabilityStart: o.availabilityStart,
		AvailabilityEnd:   o.availabilityEnd,
		TimeZone:          o.timeZone,
		CalendarIDs:       o.calendars,
	}
}

func newFreeCmd() *cobra.Command {
	var opts freeOptions

	cmd := &cobra.Command{
		Use:   "free [RANGE]",
		Short: "Find free slots across your calendars",
		Long: `Find open meeting time across the configured calendars.

RANGE is "today" (default), "tomorrow", a weekday name such as "friday" (its
next occurrence, today included) or a date in YYYY-MM-DD format. Append "+N"
to search N more days, e.g. "monday+4" for a whole work week.

Only time inside the daily availability window is considered. Busy time of
all calendars is combined before gaps are computed.`,
		Example: `  gtool free
  gtool free tomorrow --duration 60
  gtool free monday+4 --availability-start 09:30 --availability-end 17:00 --pretty
  gtool free 2024-06-03 --calendar primary --calendar team@example.com --json`,
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

			logger := slog.Default()
			policy := newPolicy(cfg, logger, nil)
			c, err := newClients(cmd.Context(), cfg, policy, nil, logger)
			if err != nil {
				return err
			}

			sched := scheduler.New(c.calendar, policy,
				scheduler.WithLogger(logger),
				scheduler.WithConcurrency(cfg.Concurrency))

			return runFree(cmd.Context(), cmd.OutOrStdout(), cfg, sched, rangeExpr, opts, time.Now())
		},
	}

	cmd.Flags().IntVarP(&opts.durationMinutes, "duration", "d", int(config.DefaultDuration/time.Minute), "Minimum slot length in minutes")
	cmd.Flags().StringVar(&opts.availabilityStart, "availability-start", "", "Start of the daily availability window as HH:MM (default: from config)")
	cmd.Flags().StringVar(&opts.availabilityEnd, "availability-end", "", "End of the daily availability window as HH:MM (default: from config)")
	cmd.Flags().StringVar(&opts.timeZone, "timezone", "", "IANA timezone, e.g. Europe/Berlin (default: from config)")
	cmd.Flags().StringSliceVarP(&opts.calendars, "calendar", "c", nil, "Calendar ID to include; repeat for more (default: from config)")
	cmd.Flags().BoolVarP(&opts.pretty, "pretty", "p", false, "Print slots as a table with their length")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print slots as JSON")
	cmd.MarkFlagsMutuallyExclusive("pretty", "json")

	return cmd
}

// runFree resolves the search against cfg, runs it and writes the result.
func runFree(ctx context.Context, w io.Writer, cfg *config.Config, sched *scheduler.Scheduler, rangeExpr string, opts freeOptions, now time.Time) error {
	if opts.durationMinutes <= 0 {
		return fmt.Errorf("%w: --duration must be a positive number of minutes, got %d", scheduler.ErrInvalidParameters, opts.durationMinutes)
	}

	params, err := cfg.SearchParameters(opts.request(rangeExpr), now)
	if err != nil {
		return err
	}

	slots, err := sched.FreeSlots(ctx, params)
	if err != nil {
		return err
	}

	switch {
	case opts.json:
		if slots == nil {
			slots = []scheduler.FreeSlot{}
		}
		return format.JSON(w, slots)
	case opts.pretty:
		return format.SlotsTable(w, slots)
	case len(slots) == 0:
		_, err := fmt.Fprintln(w, "No free slots found.")
		return err
	default:
		return format.Slots(w, slots)
	}
}

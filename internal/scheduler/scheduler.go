package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/gtool/internal/instrumentation"
	"github.com/teemow/gtool/internal/logging"
	"github.com/teemow/gtool/internal/retry"
)

// Scheduler finds free slots by combining a BusyTimeProvider with a retry policy.
type Scheduler struct {
	provider    BusyTimeProvider
	policy      *retry.Policy
	logger      *slog.Logger
	concurrency int
	recorder    Recorder
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConcurrency sets how many days are fetched in parallel. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n < 1 {
			n = 1
		}
		s.concurrency = n
	}
}

// WithMetrics registers a recorder for search statistics.
func WithMetrics(r Recorder) Option {
	return func(s *Scheduler) {
		s.recorder = r
	}
}

// New creates a Scheduler. A nil policy uses retry defaults.
func New(provider BusyTimeProvider, policy *retry.Policy, opts ...Option) *Scheduler {
	if policy == nil {
		policy = retry.New()
	}
	s := &Scheduler{
		provider:    provider,
		policy:      policy,
		logger:      slog.Default(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FreeSlots returns every free slot between params.Start and params.End, in
// chronological order. Any provider error that survives the retry policy
// aborts the search and no slots are returned.
func (s *Scheduler) FreeSlots(ctx context.Context, params SearchParameters) (_ []FreeSlot, err error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	logger := logging.WithOperation(s.logger, "scheduler.free_slots")
	days := searchDays(params.Start, params.End, params.Location)
	perDay := make([][]FreeSlot, len(days))

	ctx, span := instrumentation.StartSpan(ctx, "scheduler.free_slots",
		attribute.Int(instrumentation.SpanAttrDays, len(days)),
		attribute.Int(instrumentation.SpanAttrCalendars, len(params.CalendarIDs)))
	defer func() { instrumentation.EndSpan(span, err) }()

	if s.concurrency > 1 && len(days) > 1 {
		err = s.fetchParallel(ctx, logger, days, params, perDay)
	} else {
		err = s.fetchSequential(ctx, logger, days, params, perDay)
	}
	if err != nil {
		s.record(ctx, logging.StatusError, len(days), 0, time.Since(started))
		logger.Error("free slot search failed", logging.Err(err))
		return nil, err
	}

	var slots []FreeSlot
	for _, daySlots := range perDay {
		slots = append(slots, daySlots...)
	}

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrSlots, len(slots)))
	s.record(ctx, logging.StatusSuccess, len(days), len(slots), time.Since(started))
	logger.Info("free slot search complete",
		slog.Int("days", len(days)),
		logging.Calendars(params.CalendarIDs),
		logging.Count(len(slots)),
		logging.Duration(time.Since(started)))
	return slots, nil
}

func (s *Scheduler) fetchSequential(ctx context.Context, logger *slog.Logger, days []time.Time, params SearchParameters, out [][]FreeSlot) error {
	for i, day := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		slots, err := s.dayFreeSlots(ctx, logger, day, params)
		if err != nil {
			return err
		}
		out[i] = slots
	}
	return nil
}

func (s *Scheduler) fetchParallel(ctx context.Context, logger *slog.Logger, days []time.Time, params SearchParameters, out [][]FreeSlot) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, day := range days {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots, err := s.dayFreeSlots(gctx, logger, day, params)
			if err != nil {
				return err
			}
			out[i] = slots
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) dayFreeSlots(ctx context.Context, logger *slog.Logger, day time.Time, params SearchParameters) (_ []FreeSlot, err error) {
	window := dayWindow(day, params)
	if window.Empty() {
		logger.Debug("skipping day outside search range", logging.Day(day))
		return nil, nil
	}

	ctx, span := instrumentation.StartSpan(ctx, "scheduler.day",
		attribute.String(instrumentation.SpanAttrDay, day.Format(time.DateOnly)))
	defer func() { instrumentation.EndSpan(span, err) }()

	busy, err := retry.Execute(ctx, s.policy, "calendar.freebusy", func(ctx context.Context) ([]BusyInterval, error) {
		return s.provider.DayBusyTimes(ctx, params.CalendarIDs, day, params.Location)
	})
	if err != nil {
		return nil, fmt.Errorf("busy times for %s: %w", day.Format(time.DateOnly), err)
	}

	slots := FreeSlotsForDay(window, busy, params.Duration)
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrSlots, len(slots)))
	logger.Debug("day processed",
		logging.Day(day),
		slog.Int("busy", len(busy)),
		logging.Count(len(slots)))
	return slots, nil
}

func (s *Scheduler) record(ctx context.Context, status string, days, slots int, elapsed time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordFreeSlotSearch(ctx, status, days, slots, elapsed)
	}
}

package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/gtool/internal/instrumentation"
	"github.com/teemow/gtool/internal/logging"
	"github.com/teemow/gtool/internal/retry"
	"github.com/teemow/gtool/internal/scheduler"
)

const maxEventsPerPage = 250

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	policy  *retry.Policy
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPolicy sets the retry policy used for list calls.
func WithPolicy(p *retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithMetrics records every API call on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Calendar client that sends requests through
// httpClient, which is expected to carry the OAuth token.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return NewClientWithService(svc, opts...), nil
}

// NewClientWithService creates a Client around an existing service.
func NewClientWithService(svc *calendar.Service, opts ...Option) *Client {
	c := &Client{
		svc:    svc,
		policy: retry.New(retry.WithMaxRetries(0)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithService(c.logger, instrumentation.ServiceCalendar)
	return c
}

// ListCalendars lists all calendars accessible to the user
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	entries, err := retry.Execute(ctx, c.policy, "calendar.calendar_list", func(ctx context.Context) ([]*calendar.CalendarListEntry, error) {
		return instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceCalendar, instrumentation.OperationList,
			func(ctx context.Context) ([]*calendar.CalendarListEntry, error) {
				var items []*calendar.CalendarListEntry
				err := c.svc.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
					items = append(items, page.Items...)
					return nil
				})
				return items, err
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	calendars := make([]CalendarInfo, 0, len(entries))
	owner := ""
	for _, entry := range entries {
		info := toCalendarInfo(entry)
		if info.Primary {
			owner = info.ID
		}
		calendars = append(calendars, info)
	}

	c.logger.Debug("listed calendars", logging.UserHash(owner), logging.Count(len(calendars)))
	return calendars, nil
}

// ListEvents lists the single events of a calendar overlapping
// [timeMin, timeMax), ordered by start time.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]EventSummary, error) {
	events, err := retry.Execute(ctx, c.policy, "calendar.events", func(ctx context.Context) ([]*calendar.Event, error) {
		return instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceCalendar, instrumentation.OperationList,
			func(ctx context.Context) ([]*calendar.Event, error) {
				var items []*calendar.Event
				err := c.svc.Events.List(calendarID).
					TimeMin(timeMin.Format(time.RFC3339)).
					TimeMax(timeMax.Format(time.RFC3339)).
					SingleEvents(true).
					OrderBy("startTime").
					MaxResults(maxEventsPerPage).
					Pages(ctx, func(page *calendar.Events) error {
						items = append(items, page.Items...)
						return nil
					})
				return items, err
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s: %w", calendarID, err)
	}

	loc := timeMin.Location()
	summaries := make([]EventSummary, 0, len(events))
	for _, event := range events {
		summaries = append(summaries, toEventSummary(calendarID, event, loc))
	}

	return summaries, nil
}

// ListEventsForCalendars lists events from every calendar and merges them
// in start order. The first failing calendar aborts the listing.
func (c *Client) ListEventsForCalendars(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) ([]EventSummary, error) {
	var all []EventSummary
	for _, id := range calendarIDs {
		events, err := c.ListEvents(ctx, id, timeMin, timeMax)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}

	slices.SortStableFunc(all, func(a, b EventSummary) int {
		return a.Start.Compare(b.Start)
	})
	return all, nil
}

// DayBusyTimes returns the busy intervals of all calendars on the local
// day containing day. It issues a single freebusy query bounded by the
// day's midnights in loc. A calendar missing from the response has no
// busy time; a calendar reporting an error fails the whole call with a
// *FreeBusyError.
func (c *Client) DayBusyTimes(ctx context.Context, calendarIDs []string, day time.Time, loc *time.Location) ([]scheduler.BusyInterval, error) {
	local := day.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	items := make([]*calendar.FreeBusyRequestItem, len(calendarIDs))
	for i, id := range calendarIDs {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}

	query := &calendar.FreeBusyRequest{
		TimeMin:  start.Format(time.RFC3339),
		TimeMax:  end.Format(time.RFC3339),
		TimeZone: loc.String(),
		Items:    items,
	}

	result, err := instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceCalendar, instrumentation.OperationFreeBusy,
		func(ctx context.Context) (*calendar.FreeBusyResponse, error) {
			return c.svc.Freebusy.Query(query).Context(ctx).Do()
		})
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	var busy []scheduler.BusyInterval
	for _, id := range calendarIDs {
		cal, ok := result.Calendars[id]
		if !ok {
			continue
		}
		if len(cal.Errors) > 0 {
			return nil, &FreeBusyError{Calendar: id, Reason: cal.Errors[0].Reason}
		}
		for _, period := range cal.Busy {
			interval, err := parseBusy(period, loc)
			if err != nil {
				return nil, fmt.Errorf("calendar %s: %w", id, err)
			}
			busy = append(busy, interval)
		}
	}

	c.logger.Debug("fetched busy times",
		logging.Day(start),
		logging.Calendars(calendarIDs),
		logging.Count(len(busy)))

	return busy, nil
}

func parseBusy(period *calendar.TimePeriod, loc *time.Location) (scheduler.BusyInterval, error) {
	start, err := time.Parse(time.RFC3339, period.Start)
	if err != nil {
		return scheduler.BusyInterval{}, fmt.Errorf("invalid busy start %q: %w", period.Start, err)
	}
	end, err := time.Parse(time.RFC3339, period.End)
	if err != nil {
		return scheduler.BusyInterval{}, fmt.Errorf("invalid busy end %q: %w", period.End, err)
	}
	return scheduler.BusyInterval{Start: start.In(loc), End: end.In(loc)}, nil
}

var _ scheduler.BusyTimeProvider = (*Client)(nil)

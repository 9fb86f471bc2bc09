package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidParameters is wrapped by every SearchParameters validation failure.
var ErrInvalidParameters = errors.New("invalid search parameters")

// BusyInterval is a span during which at least one calendar is occupied.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval has a positive length.
func (b BusyInterval) Valid() bool {
	return b.End.After(b.Start)
}

// FreeSlot is an open span at least as long as the requested duration.
type FreeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the length of the slot.
func (s FreeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Valid reports whether the hour and minute are in range.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// Before reports whether t is earlier in the day than o.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.minutes() < o.minutes()
}

// On returns t on the calendar day of day in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// Window is the availability span of one day.
type Window struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the window has no length.
func (w Window) Empty() bool {
	return !w.End.After(w.Start)
}

// SearchParameters describes a free-slot search.
type SearchParameters struct {
	// Start and End bound the search, inclusive of both calendar days.
	Start time.Time
	End   time.Time
	// CalendarIDs are the calendars whose busy time is combined.
	CalendarIDs []string
	// Duration is the minimum slot length.
	Duration time.Duration
	// AvailabilityStart and AvailabilityEnd bound each day's window.
	AvailabilityStart TimeOfDay
	AvailabilityEnd   TimeOfDay
	// Location is the timezone windows and days are computed in.
	Location *time.Location
}

// Validate reports the first violated constraint, wrapped in ErrInvalidParameters.
func (p SearchParameters) Validate() error {
	switch {
	case p.Location == nil:
		return fmt.Errorf("%w: location is required", ErrInvalidParameters)
	case p.Start.IsZero() || p.End.IsZero():
		return fmt.Errorf("%w: start and end are required", ErrInvalidParameters)
	case p.End.Before(p.Start):
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidParameters,
			p.End.Format(time.RFC3339), p.Start.Format(time.RFC3339))
	case p.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidParameters, p.Duration)
	case len(p.CalendarIDs) == 0:
		return fmt.Errorf("%w: at least one calendar id is required", ErrInvalidParameters)
	case !p.AvailabilityStart.Valid() || !p.AvailabilityEnd.Valid():
		return fmt.Errorf("%w: availability %s-%s is out of range", ErrInvalidParameters,
			p.AvailabilityStart, p.AvailabilityEnd)
	case !p.AvailabilityStart.Before(p.AvailabilityEnd):
		return fmt.Errorf("%w: availability start %s must be before end %s", ErrInvalidParameters,
			p.AvailabilityStart, p.AvailabilityEnd)
	}
	for _, id := range p.CalendarIDs {
		if id == "" {
			return fmt.Errorf("%w: empty calendar id", ErrInvalidParameters)
		}
	}
	return nil
}

// BusyTimeProvider returns the busy intervals of the given calendars for the
// calendar day of day in loc. Intervals may overlap and be unsorted.
type BusyTimeProvider interface {
	DayBusyTimes(ctx context.Context, calendarIDs []string, day time.Time, loc *time.Location) ([]BusyInterval, error)
}

// BusyTimeProviderFunc adapts a function to BusyTimeProvider.
type BusyTimeProviderFunc func(ctx context.Context, calendarIDs []string, day time.Time, loc *time.Location) ([]BusyInterval, error)

// DayBusyTimes calls f.
func (f BusyTimeProviderFunc) DayBusyTimes(ctx context.Context, calendarIDs []string, day time.Time, loc *time.Location) ([]BusyInterval, error) {
	return f(ctx, calendarIDs, day, loc)
}

// Recorder receives search statistics. instrumentation.Metrics implements it.
type Recorder interface {
	RecordFreeSlotSearch(ctx context.Context, status string, days, slots int, duration time.Duration)
}

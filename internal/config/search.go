package config

import (
	"fmt"
	"time"

	"github.com/teemow/gtool/internal/daterange"
	"github.com/teemow/gtool/internal/scheduler"
)

// DefaultDuration is the meeting length searched for when none is given.
const DefaultDuration = 30 * time.Minute

// SearchRequest holds free-slot search inputs from a flag set or a tool
// call. Empty fields fall back to the configuration.
type SearchRequest struct {
	Range             string
	Duration          time.Duration
	AvailabilityStart string
	AvailabilityEnd   string
	TimeZone          string
	CalendarIDs       []string
}

// SearchParameters resolves req against c into scheduler parameters. Date
// range expressions are evaluated relative to now.
func (c *Config) SearchParameters(req SearchRequest, now time.Time) (scheduler.SearchParameters, error) {
	resolved := *c
	if req.TimeZone != "" {
		resolved.TimeZone = req.TimeZone
	}
	if req.AvailabilityStart != "" {
		resolved.AvailabilityStart = req.AvailabilityStart
	}
	if req.AvailabilityEnd != "" {
		resolved.AvailabilityEnd = req.AvailabilityEnd
	}
	if len(req.CalendarIDs) > 0 {
		resolved.CalendarIDs = req.CalendarIDs
	}

	loc, err := resolved.Location()
	if err != nil {
		return scheduler.SearchParameters{}, err
	}
	availStart, availEnd, err := resolved.Availability()
	if err != nil {
		return scheduler.SearchParameters{}, err
	}

	r, err := daterange.Parse(req.Range, loc, now)
	if err != nil {
		return scheduler.SearchParameters{}, err
	}

	duration := req.Duration
	if duration == 0 {
		duration = DefaultDuration
	}
	if duration < 0 {
		return scheduler.SearchParameters{}, fmt.Errorf("%w: duration must be positive, got %s", scheduler.ErrInvalidParameters, duration)
	}

	params := scheduler.SearchParameters{
		Start:             r.Start,
		End:               r.End,
		CalendarIDs:       resolved.CalendarIDs,
		Duration:          duration,
		AvailabilityStart: availStart,
		AvailabilityEnd:   availEnd,
		Location:          loc,
	}
	return params, params.Validate()
}

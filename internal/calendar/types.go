package calendar

import (
	"fmt"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// EventSummary represents a simplified calendar event for listing
type EventSummary struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendar_id"`
	Summary    string    `json:"summary"`
	Location   string    `json:"location,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	AllDay     bool      `json:"all_day"`
	Status     string    `json:"status,omitempty"`
	Organizer  string    `json:"organizer,omitempty"`
	MeetLink   string    `json:"meet_link,omitempty"`
}

// Duration returns the length of the event.
func (e EventSummary) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// CalendarInfo represents information about a calendar
type CalendarInfo struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	TimeZone   string `json:"time_zone,omitempty"`
	Primary    bool   `json:"primary"`
	AccessRole string `json:"access_role"` // "owner", "writer", "reader", "freeBusyReader"
}

// FreeBusyError is a per-calendar failure reported inside an otherwise
// successful freebusy response.
type FreeBusyError struct {
	Calendar string
	Reason   string
}

func (e *FreeBusyError) Error() string {
	return fmt.Sprintf("freebusy for calendar %s: %s", e.Calendar, e.Reason)
}

// StatusCode maps the reported reason to an HTTP status so the retry
// categorizer can classify it.
func (e *FreeBusyError) StatusCode() int {
	switch e.Reason {
	case "internalError", "backendError":
		return http.StatusInternalServerError
	case "notFound":
		return http.StatusNotFound
	case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// toEventSummary converts a Google Calendar event to an EventSummary.
// All-day dates are interpreted in loc.
func toEventSummary(calendarID string, event *calendar.Event, loc *time.Location) EventSummary {
	if event == nil {
		return EventSummary{CalendarID: calendarID}
	}

	summary := EventSummary{
		ID:         event.Id,
		CalendarID: calendarID,
		Summary:    event.Summary,
		Location:   event.Location,
		Status:     event.Status,
	}

	summary.Start, summary.AllDay = parseEventTime(event.Start, loc)
	summary.End, _ = parseEventTime(event.End, loc)

	if event.Organizer != nil {
		summary.Organizer = event.Organizer.Email
	}

	if event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				summary.MeetLink = ep.Uri
				break
			}
		}
	}

	return summary
}

func parseEventTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t.In(loc), false
		}
	}
	if edt.Date != "" {
		if t, err := time.ParseInLocation(time.DateOnly, edt.Date, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// toCalendarInfo converts a Google Calendar list entry to CalendarInfo
func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	if entry == nil {
		return CalendarInfo{}
	}
	return CalendarInfo{
		ID:         entry.Id,
		Summary:    entry.Summary,
		TimeZone:   entry.TimeZone,
		Primary:    entry.Primary,
		AccessRole: entry.AccessRole,
	}
}

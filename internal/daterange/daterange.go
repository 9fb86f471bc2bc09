// Package daterange parses the relative date expressions accepted by the CLI,
// such as "today", "friday+2" or "2024-06-03+1".
package daterange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/gtool/internal/scheduler"
)

// ErrInvalidRange is wrapped by every parse failure.
var ErrInvalidRange = errors.New("invalid date range")

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Range is an inclusive span of calendar days in one location.
type Range struct {
	// Start is midnight of the first day.
	Start time.Time
	// End is the last instant of the last day, one nanosecond before Until.
	End time.Time
}

// Until returns midnight after the last day, the exclusive end of r.
func (r Range) Until() time.Time {
	return r.End.Add(time.Nanosecond)
}

// Days returns the number of calendar days covered.
func (r Range) Days() int {
	n := 0
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// Parse interprets expr relative to now in loc.
//
// The base is "today", "tomorrow", a weekday name (its next occurrence, today
// included) or a YYYY-MM-DD date. An optional "+N" suffix extends the range by
// N days. An empty expression means "today".
func Parse(expr string, loc *time.Location, now time.Time) (Range, error) {
	if loc == nil {
		return Range{}, fmt.Errorf("%w: location is required", ErrInvalidRange)
	}
	expr = strings.ToLower(strings.TrimSpace(expr))
	if expr == "" {
		expr = "today"
	}

	base, extra := expr, 0
	if i := strings.LastIndex(expr, "+"); i >= 0 {
		n, err := strconv.Atoi(strings.TrimSpace(expr[i+1:]))
		if err != nil || n < 0 {
			return Range{}, fmt.Errorf("%w: bad day offset in %q", ErrInvalidRange, expr)
		}
		base, extra = strings.TrimSpace(expr[:i]), n
	}

	today := midnight(now.In(loc))
	var first time.Time
	switch base {
	case "today":
		first = today
	case "tomorrow":
		first = today.AddDate(0, 0, 1)
	default:
		if wd, ok := weekdays[base]; ok {
			first = today.AddDate(0, 0, (int(wd)-int(today.Weekday())+7)%7)
			break
		}
		d, err := time.ParseInLocation(time.DateOnly, base, loc)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q is not today, tomorrow, a weekday or YYYY-MM-DD", ErrInvalidRange, base)
		}
		first = d
	}

	return Range{
		Start: first,
		End:   first.AddDate(0, 0, extra+1).Add(-time.Nanosecond),
	}, nil
}

// ParseTimeOfDay parses an HH:MM wall-clock time.
func ParseTimeOfDay(s string) (scheduler.TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return scheduler.TimeOfDay{}, fmt.Errorf("invalid time of day %q, expected HH:MM", s)
	}
	return scheduler.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

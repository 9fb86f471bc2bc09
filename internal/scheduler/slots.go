package scheduler

import (
	"slices"
	"time"
)

// FreeSlotsForDay returns the gaps in window not covered by busy that are at
// least duration long, in chronological order. Malformed intervals are
// ignored and busy is not modified.
func FreeSlotsForDay(window Window, busy []BusyInterval, duration time.Duration) []FreeSlot {
	if duration <= 0 || window.Empty() {
		return nil
	}

	var slots []FreeSlot
	cursor := window.Start
	for _, b := range mergeBusy(window, busy) {
		if b.Start.Sub(cursor) >= duration {
			slots = append(slots, FreeSlot{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if window.End.Sub(cursor) >= duration {
		slots = append(slots, FreeSlot{Start: cursor, End: window.End})
	}
	return slots
}

// mergeBusy clips busy to window and unions overlapping or touching intervals.
func mergeBusy(window Window, busy []BusyInterval) []BusyInterval {
	clipped := make([]BusyInterval, 0, len(busy))
	for _, b := range busy {
		if !b.Valid() {
			continue
		}
		if !b.End.After(window.Start) || !b.Start.Before(window.End) {
			continue
		}
		if b.Start.Before(window.Start) {
			b.Start = window.Start
		}
		if b.End.After(window.End) {
			b.End = window.End
		}
		clipped = append(clipped, b)
	}

	slices.SortFunc(clipped, func(a, b BusyInterval) int {
		return a.Start.Compare(b.Start)
	})

	merged := clipped[:0]
	for _, b := range clipped {
		if n := len(merged); n > 0 && !b.Start.After(merged[n-1].End) {
			if b.End.After(merged[n-1].End) {
				merged[n-1].End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

// dayWindow returns the availability window of day clipped to [start, end].
func dayWindow(day time.Time, params SearchParameters) Window {
	w := Window{
		Start: params.AvailabilityStart.On(day, params.Location),
		End:   params.AvailabilityEnd.On(day, params.Location),
	}
	if w.Start.Before(params.Start) {
		w.Start = params.Start
	}
	if w.End.After(params.End) {
		w.End = params.End
	}
	return w
}

// searchDays returns midnight of every calendar day from start to end in loc.
func searchDays(start, end time.Time, loc *time.Location) []time.Time {
	y, m, d := start.In(loc).Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	ey, em, ed := end.In(loc).Date()
	last := time.Date(ey, em, ed, 0, 0, 0, 0, loc)

	var days []time.Time
	for !day.After(last) {
		days = append(days, day)
		day = day.AddDate(0, 0, 1)
	}
	return days
}

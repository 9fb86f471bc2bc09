package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/teemow/gtool/internal/calendar"
	"github.com/teemow/gtool/internal/gmail"
	"github.com/teemow/gtool/internal/scheduler"
)

// Layouts used for slot and event times.
const (
	SlotStartLayout = "Mon 01/02 03:04 PM"
	SlotEndLayout   = "03:04 PM"
	DateLayout      = "Monday, 2006-01-02"
)

const maxSubjectWidth = 60

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Slots writes one "start - end" line per slot.
func Slots(w io.Writer, slots []scheduler.FreeSlot) error {
	for _, s := range slots {
		if _, err := fmt.Fprintf(w, "%s - %s\n", s.Start.Format(SlotStartLayout), s.End.Format(SlotEndLayout)); err != nil {
			return err
		}
	}
	return nil
}

// SlotsTable writes slots as a table with their length in minutes.
func SlotsTable(w io.Writer, slots []scheduler.FreeSlot) error {
	if len(slots) == 0 {
		_, err := fmt.Fprintln(w, "No free slots found.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "START\tEND\tTOTAL")
	for _, s := range slots {
		fmt.Fprintf(tw, "%s\t%s\t%d min\n",
			s.Start.Format(SlotStartLayout),
			s.End.Format(SlotEndLayout),
			int(s.Duration().Minutes()))
	}
	return tw.Flush()
}

// Calendars writes a table of calendar name, id and access role.
func Calendars(w io.Writer, calendars []calendar.CalendarInfo) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tID\tACCESS ROLE")
	for _, c := range calendars {
		name := c.Summary
		if c.Primary {
			name += " (primary)"
		}
		role := c.AccessRole
		if role == "" {
			role = "unknown"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, c.ID, role)
	}
	return tw.Flush()
}

// Events writes events grouped by their local start date. names maps
// calendar ids to display names and may be nil.
func Events(w io.Writer, events []calendar.EventSummary, names map[string]string) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No events found.")
		return err
	}

	var current string
	for _, e := range events {
		date := e.Start.Format(DateLayout)
		if date != current {
			if current != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "Events for %s\n", date)
			current = date
		}

		summary := e.Summary
		if summary == "" {
			summary = "Busy"
		}
		if name := names[e.CalendarID]; name != "" {
			summary += " (" + name + ")"
		}

		fmt.Fprintf(w, "  • %s\n", summary)
		if e.Location != "" {
			fmt.Fprintf(w, "    location: %s\n", e.Location)
		}
		if _, err := fmt.Fprintf(w, "    %s\n", EventTime(e)); err != nil {
			return err
		}
	}
	return nil
}

// EventTime describes when an event happens, e.g. "10:00 AM - 10:30 AM (30m)".
func EventTime(e calendar.EventSummary) string {
	if e.AllDay {
		days := int(e.End.Sub(e.Start).Hours() / 24)
		if days <= 1 {
			return "All day"
		}
		return fmt.Sprintf("All day (%d days)", days)
	}
	return fmt.Sprintf("%s - %s (%s)", e.Start.Format(SlotEndLayout), e.End.Format(SlotEndLayout), Duration(e.Duration()))
}

// Duration renders d as hours and minutes, e.g. "1h 30m" or "45m".
func Duration(d time.Duration) string {
	d = d.Round(time.Minute)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", minutes)
	case minutes == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
}

// Messages writes a table of messages with their subject and sender.
func Messages(w io.Writer, messages []gmail.MessageSummary) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tSUBJECT\tFROM\tID")
	for i, m := range messages {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, truncate(m.Subject, maxSubjectWidth), m.From, m.ID)
	}
	return tw.Flush()
}

// MessagesSimple writes a numbered list of message ids, threads and previews.
func MessagesSimple(w io.Writer, messages []gmail.MessageSummary) error {
	for i, m := range messages {
		snippet := m.Snippet
		if snippet == "" {
			snippet = "(no preview)"
		}
		if _, err := fmt.Fprintf(w, "%d. ID: %s\n   Thread: %s\n   Preview: %s\n\n", i+1, m.ID, m.ThreadID, truncate(snippet, 80)); err != nil {
			return err
		}
	}
	return nil
}

// Message writes the headers and body of a single message.
func Message(w io.Writer, m *gmail.Message) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", m.ID)
	fmt.Fprintf(tw, "Thread:\t%s\n", m.ThreadID)
	fmt.Fprintf(tw, "Subject:\t%s\n", m.Subject)
	fmt.Fprintf(tw, "From:\t%s\n", m.From)
	if m.To != "" {
		fmt.Fprintf(tw, "To:\t%s\n", m.To)
	}
	if m.Cc != "" {
		fmt.Fprintf(tw, "Cc:\t%s\n", m.Cc)
	}
	fmt.Fprintf(tw, "Date:\t%s\n", m.Date)
	if len(m.Labels) > 0 {
		fmt.Fprintf(tw, "Labels:\t%s\n", strings.Join(m.Labels, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	body := m.Body
	if body == "" {
		body = m.Snippet
	}
	_, err := fmt.Fprintf(w, "\n%s\n", strings.TrimRight(body, "\n"))
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

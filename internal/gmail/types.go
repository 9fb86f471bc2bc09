package gmail

import (
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// NoSubject is shown for messages without a usable Subject header.
const NoSubject = "(No Subject)"

// MessageSummary is the listing view of a message.
type MessageSummary struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	Subject  string    `json:"subject"`
	From     string    `json:"from,omitempty"`
	Date     string    `json:"date,omitempty"`
	Snippet  string    `json:"snippet,omitempty"`
	Received time.Time `json:"received"`
	Labels   []string  `json:"labels,omitempty"`
}

// Message is a single message with its decoded body.
type Message struct {
	MessageSummary
	To   string `json:"to,omitempty"`
	Cc   string `json:"cc,omitempty"`
	Body string `json:"body,omitempty"`
}

// HeaderValue extracts a header value from a Gmail message.
// Header names are matched case-insensitively.
func HeaderValue(m *gmail.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, mph := range m.Payload.Headers {
		if strings.EqualFold(mph.Name, header) {
			return mph.Value
		}
	}
	return ""
}

// SubjectFromHeaders returns the trimmed Subject header, or NoSubject when
// it is missing or blank.
func SubjectFromHeaders(m *gmail.Message) string {
	subject := strings.TrimSpace(HeaderValue(m, "Subject"))
	if subject == "" {
		return NoSubject
	}
	return subject
}

func toMessageSummary(m *gmail.Message) MessageSummary {
	summary := MessageSummary{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Subject:  SubjectFromHeaders(m),
		From:     HeaderValue(m, "From"),
		Date:     HeaderValue(m, "Date"),
		Snippet:  m.Snippet,
		Labels:   m.LabelIds,
	}
	if m.InternalDate > 0 {
		summary.Received = time.UnixMilli(m.InternalDate)
	}
	return summary
}

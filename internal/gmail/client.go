package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/gtool/internal/instrumentation"
	"github.com/teemow/gtool/internal/logging"
	"github.com/teemow/gtool/internal/retry"
)

const (
	me = "me"

	// DefaultLimit is the number of messages listed when no limit is given.
	DefaultLimit = 10

	// maxPageSize is the largest page the API returns for messages.list.
	maxPageSize = 500
)

// Body formats accepted by MessageBody.
const (
	BodyText = "text"
	BodyHTML = "html"
)

// ErrNoBody is returned when a message has no part of the requested type.
var ErrNoBody = errors.New("no body of the requested type")

// Client wraps the Gmail service
type Client struct {
	svc     *gmail.Service
	policy  *retry.Policy
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPolicy sets the retry policy applied to every call.
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

// NewClient creates a Gmail client that sends requests through httpClient,
// which is expected to carry the OAuth token.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return NewClientWithService(svc, opts...), nil
}

// NewClientWithService creates a Client around an existing service.
func NewClientWithService(svc *gmail.Service, opts ...Option) *Client {
	c := &Client{
		svc:    svc,
		policy: retry.New(retry.WithMaxRetries(0)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithService(c.logger, instrumentation.ServiceGmail)
	return c
}

// ListOptions selects the messages returned by ListMessages.
type ListOptions struct {
	// Query uses Gmail search syntax, e.g. "is:unread from:alice".
	Query string
	// Label restricts the listing to a label id such as INBOX.
	Label string
	// Limit caps the number of messages. Zero means DefaultLimit.
	Limit int
}

// ListMessages lists messages matching opts, newest first, and fetches the
// Subject, From and Date headers of each one.
func (c *Client) ListMessages(ctx context.Context, opts ListOptions) ([]MessageSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	refs, err := c.listMessageRefs(ctx, opts.Query, opts.Label, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	summaries := make([]MessageSummary, 0, len(refs))
	for _, ref := range refs {
		if ref.Id == "" {
			summaries = append(summaries, MessageSummary{ThreadID: ref.ThreadId, Subject: NoSubject})
			continue
		}
		msg, err := c.getMessage(ctx, ref.Id, "metadata", "Subject", "From", "Date")
		if err != nil {
			return nil, fmt.Errorf("failed to get message %s: %w", ref.Id, err)
		}
		summaries = append(summaries, toMessageSummary(msg))
	}

	c.logger.Debug("listed messages", logging.Count(len(summaries)))
	return summaries, nil
}

func (c *Client) listMessageRefs(ctx context.Context, query, label string, limit int) ([]*gmail.Message, error) {
	var refs []*gmail.Message
	pageToken := ""

	for len(refs) < limit {
		pageSize := min(limit-len(refs), maxPageSize)

		res, err := retry.Execute(ctx, c.policy, "gmail.messages.list", func(ctx context.Context) (*gmail.ListMessagesResponse, error) {
			return instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceGmail, instrumentation.OperationList,
				func(ctx context.Context) (*gmail.ListMessagesResponse, error) {
					req := c.svc.Users.Messages.List(me).MaxResults(int64(pageSize)).Context(ctx)
					if query != "" {
						req = req.Q(query)
					}
					if label != "" {
						req = req.LabelIds(label)
					}
					if pageToken != "" {
						req = req.PageToken(pageToken)
					}
					return req.Do()
				})
		})
		if err != nil {
			return nil, err
		}

		refs = append(refs, res.Messages...)
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

// GetMessage retrieves a message with its headers and the body in the
// given format (BodyText or BodyHTML). A message without a matching body
// part is returned with an empty Body.
func (c *Client) GetMessage(ctx context.Context, messageID, bodyFormat string) (*Message, error) {
	if bodyFormat == "" {
		bodyFormat = BodyText
	}
	if bodyFormat != BodyText && bodyFormat != BodyHTML {
		return nil, fmt.Errorf("invalid format %s, must be 'text' or 'html'", bodyFormat)
	}

	msg, err := c.getMessage(ctx, messageID, "full")
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	body, err := MessageBody(msg, bodyFormat)
	if err != nil && !errors.Is(err, ErrNoBody) {
		return nil, err
	}

	return &Message{
		MessageSummary: toMessageSummary(msg),
		To:             HeaderValue(msg, "To"),
		Cc:             HeaderValue(msg, "Cc"),
		Body:           body,
	}, nil
}

func (c *Client) getMessage(ctx context.Context, messageID, format string, headers ...string) (*gmail.Message, error) {
	return retry.Execute(ctx, c.policy, "gmail.messages.get", func(ctx context.Context) (*gmail.Message, error) {
		return instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceGmail, instrumentation.OperationGet,
			func(ctx context.Context) (*gmail.Message, error) {
				req := c.svc.Users.Messages.Get(me, messageID).Format(format).Context(ctx)
				if len(headers) > 0 {
					req = req.MetadataHeaders(headers...)
				}
				return req.Do()
			})
	})
}

// TrashMessage moves a message to the trash.
func (c *Client) TrashMessage(ctx context.Context, messageID string) error {
	_, err := retry.Execute(ctx, c.policy, "gmail.messages.trash", func(ctx context.Context) (*gmail.Message, error) {
		return instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceGmail, instrumentation.OperationTrash,
			func(ctx context.Context) (*gmail.Message, error) {
				return c.svc.Users.Messages.Trash(me, messageID).Context(ctx).Do()
			})
	})
	if err != nil {
		return fmt.Errorf("failed to trash message %s: %w", messageID, err)
	}
	c.logger.Info("trashed message", slog.String("message_id", messageID))
	return nil
}

// DeleteMessage deletes a message permanently.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	err := c.policy.Run(ctx, "gmail.messages.delete", func(ctx context.Context) error {
		_, err := instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceGmail, instrumentation.OperationDelete,
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.svc.Users.Messages.Delete(me, messageID).Context(ctx).Do()
			})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	c.logger.Info("deleted message", slog.String("message_id", messageID))
	return nil
}

// MessageBody extracts and decodes the text/plain or text/html body of msg.
func MessageBody(msg *gmail.Message, format string) (string, error) {
	var targetMimeType string
	switch format {
	case BodyText, "":
		targetMimeType = "text/plain"
	case BodyHTML:
		targetMimeType = "text/html"
	default:
		return "", fmt.Errorf("invalid format %s, must be 'text' or 'html'", format)
	}

	var data string
	walkParts(msg.Payload, func(part *gmail.MessagePart) {
		if data == "" && part.MimeType == targetMimeType && part.Body != nil && part.Body.Data != "" {
			data = part.Body.Data
		}
	})
	if data == "" {
		return "", fmt.Errorf("%s: %w", targetMimeType, ErrNoBody)
	}

	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		// Bodies are usually unpadded base64url.
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode message body: %w", err)
		}
	}

	return string(decoded), nil
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

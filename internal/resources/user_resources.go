package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gtool/internal/server"
)

// Resource URIs served by gtool.
const (
	SearchDefaultsURI = "gtool://config/search-defaults"
	CalendarsURI      = "gtool://calendars"
)

// searchDefaults is the JSON body of the search-defaults resource.
type searchDefaults struct {
	TimeZone          string   `json:"time_zone"`
	AvailabilityStart string   `json:"availability_start"`
	AvailabilityEnd   string   `json:"availability_end"`
	CalendarIDs       []string `json:"calendar_ids"`
	MaxRetries        int      `json:"max_retries"`
	GmailEnabled      bool     `json:"gmail_enabled"`
}

// RegisterUserResources registers read-only resources describing the
// user's configuration and calendars.
func RegisterUserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	defaultsResource := mcp.NewResource(
		SearchDefaultsURI,
		"Free Slot Search Defaults",
		mcp.WithResourceDescription("Timezone, availability window and calendars used when calendar_find_free_slots is called without overrides"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(defaultsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSearchDefaults(request, sc)
	})

	calendarsResource := mcp.NewResource(
		CalendarsURI,
		"Calendars",
		mcp.WithResourceDescription("Calendars on the user's calendar list with their IDs and access roles"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(calendarsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleCalendars(ctx, request, sc)
	})

	return nil
}

func handleSearchDefaults(request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	cfg := sc.Config()
	return jsonContents(request.Params.URI, searchDefaults{
		TimeZone:          cfg.TimeZone,
		AvailabilityStart: cfg.AvailabilityStart,
		AvailabilityEnd:   cfg.AvailabilityEnd,
		CalendarIDs:       cfg.CalendarIDs,
		MaxRetries:        cfg.Retry.MaxRetries,
		GmailEnabled:      cfg.IsGmailEnabled(),
	})
}

func handleCalendars(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	client := sc.Calendar()
	if client == nil {
		return nil, errors.New("calendar client is not configured")
	}

	calendars, err := client.ListCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	return jsonContents(request.Params.URI, calendars)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

package calendar_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gtool/internal/calendar"
	"github.com/teemow/gtool/internal/daterange"
	"github.com/teemow/gtool/internal/server"
	"github.com/teemow/gtool/internal/tools/common"
)

// RegisterEventTools registers event listing tools with the MCP server
func RegisterEventTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listEventsTool := mcp.NewTool("calendar_list_events",
		mcp.WithDescription("List events of the configured calendars, ordered by start time"),
		mcp.WithString("range",
			mcp.Description("Days to list: 'today', 'tomorrow', a weekday name or YYYY-MM-DD, optionally followed by '+N' extra days (default: today)"),
		),
		mcp.WithString("calendars",
			mcp.Description("Comma-separated calendar IDs (default: from config)"),
		),
	)

	s.AddTool(listEventsTool, common.InstrumentedToolHandler("calendar_list_events", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	return nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	loc, err := sc.Config().Location()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r, err := daterange.Parse(common.StringArg(args, "range"), loc, now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	calendarIDs := common.ListArg(args, "calendars")
	if len(calendarIDs) == 0 {
		calendarIDs = sc.Config().CalendarIDs
	}

	client, err := getCalendarClient(sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	events, err := client.ListEventsForCalendars(ctx, calendarIDs, r.Start, r.Until())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list events: %v", err)), nil
	}
	if events == nil {
		events = []calendar.EventSummary{}
	}

	return common.JSONResult(events)
}

package calendar_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gtool/internal/config"
	"github.com/teemow/gtool/internal/scheduler"
	"github.com/teemow/gtool/internal/server"
	"github.com/teemow/gtool/internal/tools/common"
)

// FindFreeSlotsToolName is the MCP name of the free-slot search tool.
const FindFreeSlotsToolName = "calendar_find_free_slots"

// freeSlotsResult is the JSON payload returned by calendar_find_free_slots.
type freeSlotsResult struct {
	TimeZone        string               `json:"time_zone"`
	DurationMinutes int                  `json:"duration_minutes"`
	Calendars       []string             `json:"calendars"`
	Slots           []scheduler.FreeSlot `json:"slots"`
}

// RegisterSchedulingTools registers the free-slot search tool with the MCP server
func RegisterSchedulingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	findFreeSlotsTool := mcp.NewTool(FindFreeSlotsToolName,
		mcp.WithDescription("Find open meeting time across the configured calendars within the daily availability window"),
		mcp.WithString("range",
			mcp.Description("Days to search: 'today', 'tomorrow', a weekday name or YYYY-MM-DD, optionally followed by '+N' extra days (default: today)"),
		),
		mcp.WithNumber("duration_minutes",
			mcp.Description("Minimum slot length in minutes (default: 30)"),
		),
		mcp.WithString("availability_start",
			mcp.Description("Start of the daily availability window as HH:MM (default: from config)"),
		),
		mcp.WithString("availability_end",
			mcp.Description("End of the daily availability window as HH:MM (default: from config)"),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA timezone such as 'Europe/Berlin' (default: from config)"),
		),
		mcp.WithString("calendars",
			mcp.Description("Comma-separated calendar IDs whose busy time is combined (default: from config)"),
		),
	)

	s.AddTool(findFreeSlotsTool, common.InstrumentedToolHandler(FindFreeSlotsToolName, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFindFreeSlots(ctx, request, sc)
		}))

	return nil
}

func handleFindFreeSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	minutes, err := common.IntArg(args, "duration_minutes", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params, err := sc.Config().SearchParameters(config.SearchRequest{
		Range:             common.StringArg(args, "range"),
		Duration:          time.Duration(minutes) * time.Minute,
		AvailabilityStart: common.StringArg(args, "availability_start"),
		AvailabilityEnd:   common.StringArg(args, "availability_end"),
		TimeZone:          common.StringArg(args, "timezone"),
		CalendarIDs:       common.ListArg(args, "calendars"),
	}, now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	slots, err := sc.Scheduler().FreeSlots(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to find free slots: %v", err)), nil
	}
	if slots == nil {
		slots = []scheduler.FreeSlot{}
	}

	return common.JSONResult(freeSlotsResult{
		TimeZone:        params.Location.String(),
		DurationMinutes: int(params.Duration / time.Minute),
		Calendars:       params.CalendarIDs,
		Slots:           slots,
	})
}

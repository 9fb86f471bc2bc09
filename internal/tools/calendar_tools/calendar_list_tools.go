package calendar_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gtool/internal/server"
	"github.com/teemow/gtool/internal/tools/common"
)

// RegisterCalendarListTools registers calendar list tools with the MCP server
func RegisterCalendarListTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listCalendarsTool := mcp.NewTool("calendar_list_calendars",
		mcp.WithDescription("List all calendars accessible to the user"),
	)

	s.AddTool(listCalendarsTool, common.InstrumentedToolHandler("calendar_list_calendars", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListCalendars(ctx, sc)
		}))

	return nil
}

func handleListCalendars(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	client, err := getCalendarClient(sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	calendars, err := client.ListCalendars(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list calendars: %v", err)), nil
	}

	return common.JSONResult(calendars)
}

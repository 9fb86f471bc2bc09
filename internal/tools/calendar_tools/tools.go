package calendar_tools

import (
	"errors"
	"fmt"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gtool/internal/calendar"
	"github.com/teemow/gtool/internal/server"
)

// errNoCalendarClient is returned by tools that need the Calendar API when
// the server was started without one.
var errNoCalendarClient = errors.New("calendar client is not configured, run 'gtool auth login'")

// now is replaced in tests.
var now = time.Now

// getCalendarClient returns the shared Calendar client of sc.
func getCalendarClient(sc *server.ServerContext) (*calendar.Client, error) {
	client := sc.Calendar()
	if client == nil {
		return nil, errNoCalendarClient
	}
	return client, nil
}

// RegisterCalendarTools registers all Calendar-related tools with the MCP server
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterSchedulingTools(s, sc); err != nil {
		return fmt.Errorf("failed to register scheduling tools: %w", err)
	}

	if err := RegisterCalendarListTools(s, sc); err != nil {
		return fmt.Errorf("failed to register calendar list tools: %w", err)
	}

	if err := RegisterEventTools(s, sc); err != nil {
		return fmt.Errorf("failed to register event tools: %w", err)
	}

	return nil
}

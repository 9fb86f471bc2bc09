// Package calendar_tools provides MCP (Model Context Protocol) tools for Google Calendar operations.
//
// The tools expose the free-slot scheduler and read-only calendar listings
// to AI assistants through the gtool MCP server. Searches use the same
// configuration defaults as the gtool CLI.
package calendar_tools

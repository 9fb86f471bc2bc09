// Package resources provides MCP resources exposing gtool's configuration
// and the user's calendar list. Resources are read-only data sources that
// MCP clients can fetch before calling a tool.
package resources

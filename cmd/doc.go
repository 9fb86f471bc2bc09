// Package cmd implements the command-line interface for gtool.
//
// This package provides the following commands:
//   - free: Find free slots across the configured calendars
//   - get-calendars: List the calendars accessible to the user
//   - show-events: List events of the configured calendars
//   - gmail: List, show and delete Gmail messages
//   - config: Create and print the configuration file
//   - auth: Authorize gtool with Google and show the token status
//   - serve: Start the MCP server to provide tools for AI assistants
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
package cmd

// Package gmail_tools provides MCP (Model Context Protocol) tools for reading Gmail.
//
// Tools:
//   - gmail_list_messages: list messages matching a search query or label
//   - gmail_get_message: retrieve one message with its text or HTML body
//
// The tools are read-only. They fail with a tool error when the server was
// started without a Gmail scope.
package gmail_tools

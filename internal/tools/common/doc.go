// Package common provides shared utilities for MCP tool implementations:
// argument helpers, JSON results and the instrumentation wrapper applied to
// every registered tool.
package common

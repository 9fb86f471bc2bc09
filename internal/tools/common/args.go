package common

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// StringArg returns the trimmed string argument name, or "" when it is
// missing or not a string.
func StringArg(args map[string]interface{}, name string) string {
	if v, ok := args[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// IntArg returns the numeric argument name. JSON numbers arrive as float64.
func IntArg(args map[string]interface{}, name string, defaultValue int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return defaultValue, nil
	}
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%s must be a whole number", name)
		}
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
}

// ListArg splits a comma-separated string argument, dropping empty items.
func ListArg(args map[string]interface{}, name string) []string {
	raw := StringArg(args, name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// JSONResult renders v as an indented JSON text result.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

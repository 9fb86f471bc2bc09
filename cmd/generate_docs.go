package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gtool/internal/config"
	"github.com/teemow/gtool/internal/scheduler"
	"github.com/teemow/gtool/internal/server"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all tools served by 'gtool serve'.
The tools are registered exactly as the server does and introspected, so the
output always matches the implementation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := registeredTools()
			if err != nil {
				return err
			}
			markdown := generateToolsMarkdown(tools)

			if outputFile == "" {
				_, err := io.WriteString(cmd.OutOrStdout(), markdown)
				return err
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// registeredTools registers every tool on a throwaway server. Registration
// needs no credentials.
func registeredTools() ([]mcp.Tool, error) {
	serverContext, err := server.NewServerContext(context.Background(), server.Dependencies{
		Config:    config.Default(),
		Scheduler: scheduler.New(scheduler.BusyTimeProviderFunc(nil), nil),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("gtool", version, mcpserver.WithToolCapabilities(true))
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return nil, err
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name < tools[j].Name
	})
	return tools, nil
}

// generateToolsMarkdown renders tools, sorted by name, grouped by the
// service prefix of their name.
func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("Tools available when running `gtool serve`.\n\n")
	sb.WriteString("**Note:** This documentation is generated by `gtool generate-docs`.\n\n")

	groups := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := toolCategory(tool.Name)
		groups[category] = append(groups[category], tool)
	}

	categories := make([]string, 0, len(groups))
	for category := range groups {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, tool := range groups[category] {
			writeToolMarkdown(&sb, tool)
		}
	}

	return sb.String()
}

func toolCategory(name string) string {
	prefix, _, _ := strings.Cut(name, "_")
	switch prefix {
	case "gmail":
		return "Gmail"
	case "calendar":
		return "Google Calendar"
	default:
		return "Other"
	}
}

func writeToolMarkdown(sb *strings.Builder, tool mcp.Tool) {
	fmt.Fprintf(sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(sb, "%s\n\n", tool.Description)
	}

	if len(tool.InputSchema.Properties) == 0 {
		sb.WriteString("No arguments.\n\n")
		return
	}

	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString("| Argument | Type | Required | Description |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, name := range names {
		prop, _ := tool.InputSchema.Properties[name].(map[string]any)
		propType, _ := prop["type"].(string)
		if propType == "" {
			propType = "any"
		}
		required := "no"
		if slices.Contains(tool.InputSchema.Required, name) {
			required = "yes"
		}
		desc, _ := prop["description"].(string)
		fmt.Fprintf(sb, "| `%s` | %s | %s | %s |\n", name, propType, required, strings.ReplaceAll(desc, "|", "\\|"))
	}
	sb.WriteString("\n")
}

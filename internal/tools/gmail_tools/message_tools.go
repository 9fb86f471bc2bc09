package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gtool/internal/gmail"
	"github.com/teemow/gtool/internal/server"
	"github.com/teemow/gtool/internal/tools/common"
)

// maxListCount caps gmail_list_messages so a single call stays cheap.
const maxListCount = 100

// RegisterMessageTools registers message listing and retrieval tools with the MCP server
func RegisterMessageTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listMessagesTool := mcp.NewTool("gmail_list_messages",
		mcp.WithDescription("List Gmail messages matching a search query, newest first"),
		mcp.WithString("query",
			mcp.Description("Gmail search query (e.g., 'is:unread from:alice@example.com')"),
		),
		mcp.WithString("label",
			mcp.Description("Label ID to restrict the listing to (e.g., 'INBOX')"),
		),
		mcp.WithNumber("count",
			mcp.Description(fmt.Sprintf("Maximum number of messages to return (default: %d, max: %d)", gmail.DefaultLimit, maxListCount)),
		),
	)

	s.AddTool(listMessagesTool, common.InstrumentedToolHandler("gmail_list_messages", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListMessages(ctx, request, sc)
		}))

	getMessageTool := mcp.NewTool("gmail_get_message",
		mcp.WithDescription("Get a Gmail message with its headers and body"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message"),
		),
		mcp.WithString("format",
			mcp.Description("Body format: 'text' or 'html' (default: text)"),
		),
	)

	s.AddTool(getMessageTool, common.InstrumentedToolHandler("gmail_get_message", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetMessage(ctx, request, sc)
		}))

	return nil
}

func handleListMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	count, err := common.IntArg(args, "count", gmail.DefaultLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if count < 1 || count > maxListCount {
		return mcp.NewToolResultError(fmt.Sprintf("count must be between 1 and %d", maxListCount)), nil
	}

	client, err := sc.Gmail()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	messages, err := client.ListMessages(ctx, gmail.ListOptions{
		Query: common.StringArg(args, "query"),
		Label: common.StringArg(args, "label"),
		Limit: count,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list messages: %v", err)), nil
	}
	if messages == nil {
		messages = []gmail.MessageSummary{}
	}

	return common.JSONResult(messages)
}

func handleGetMessage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID := common.StringArg(args, "messageId")
	if messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	format := common.StringArg(args, "format")
	if format == "" {
		format = gmail.BodyText
	}
	if format != gmail.BodyText && format != gmail.BodyHTML {
		return mcp.NewToolResultError("format must be 'text' or 'html'"), nil
	}

	client, err := sc.Gmail()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msg, err := client.GetMessage(ctx, messageID, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get message: %v", err)), nil
	}

	return common.JSONResult(msg)
}

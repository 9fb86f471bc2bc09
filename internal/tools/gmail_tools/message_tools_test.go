package gmail_tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/gtool/internal/config"
	"github.com/teemow/gtool/internal/gmail"
	"github.com/teemow/gtool/internal/logging"
	"github.com/teemow/gtool/internal/scheduler"
	"github.com/teemow/gtool/internal/server"
)

func newServerContext(t *testing.T, client *gmail.Client) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), server.Dependencies{
		Config:    config.Default(),
		Scheduler: scheduler.New(scheduler.BusyTimeProviderFunc(nil), nil),
		Gmail:     client,
		Logger:    logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func newGmailClient(t *testing.T, handler http.HandlerFunc) *gmail.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gm.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return gmail.NewClientWithService(svc, gmail.WithLogger(logging.Discard()))
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestRegisterGmailTools(t *testing.T) {
	sc := newServerContext(t, nil)
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))

	require.NoError(t, RegisterGmailTools(s, sc))

	tools := s.ListTools()
	assert.Contains(t, tools, "gmail_list_messages")
	assert.Contains(t, tools, "gmail_get_message")
}

func TestHandlersWithGmailDisabled(t *testing.T) {
	sc := newServerContext(t, nil)

	result, err := handleListMessages(context.Background(), callRequest(nil), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), server.ErrGmailDisabled.Error())

	result, err = handleGetMessage(context.Background(), callRequest(map[string]any{"messageId": "m1"}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), server.ErrGmailDisabled.Error())
}

func TestHandleListMessages_ArgumentValidation(t *testing.T) {
	sc := newServerContext(t, nil)

	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{"zero count", map[string]any{"count": 0.0}, "count must be between"},
		{"too many", map[string]any{"count": 500.0}, "count must be between"},
		{"not a number", map[string]any{"count": "ten"}, "must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleListMessages(context.Background(), callRequest(tt.args), sc)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.wantErr)
		})
	}
}

func TestHandleGetMessage_ArgumentValidation(t *testing.T) {
	sc := newServerContext(t, nil)

	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{"missing id", map[string]any{}, "messageId is required"},
		{"blank id", map[string]any{"messageId": "  "}, "messageId is required"},
		{"bad format", map[string]any{"messageId": "m1", "format": "pdf"}, "format must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleGetMessage(context.Background(), callRequest(tt.args), sc)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.wantErr)
		})
	}
}

func TestHandleListMessages(t *testing.T) {
	client := newGmailClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/users/me/messages") {
			assert.Equal(t, "is:unread", r.URL.Query().Get("q"))
			assert.Equal(t, "3", r.URL.Query().Get("maxResults"))
			_, _ = w.Write([]byte(`{"messages":[{"id":"m1","threadId":"t1"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"m1","threadId":"t1","payload":{"headers":[{"name":"Subject","value":"Lunch"}]}}`))
	})
	sc := newServerContext(t, client)

	result, err := handleListMessages(context.Background(), callRequest(map[string]any{"query": "is:unread", "count": 3.0}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var messages []gmail.MessageSummary
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "Lunch", messages[0].Subject)
}

func TestHandleGetMessage(t *testing.T) {
	body := base64.URLEncoding.EncodeToString([]byte("see you at noon"))
	client := newGmailClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"m1","threadId":"t1","payload":{"mimeType":"text/plain",` +
			`"headers":[{"name":"Subject","value":"Lunch"},{"name":"To","value":"bob@example.com"}],` +
			`"body":{"data":"` + body + `"}}}`))
	})
	sc := newServerContext(t, client)

	result, err := handleGetMessage(context.Background(), callRequest(map[string]any{"messageId": "m1"}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var msg gmail.Message
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &msg))
	assert.Equal(t, "Lunch", msg.Subject)
	assert.Equal(t, "bob@example.com", msg.To)
	assert.Equal(t, "see you at noon", msg.Body)
}

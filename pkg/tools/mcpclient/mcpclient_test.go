package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/germanamz/agentry/pkg/chats/content"
	"github.com/germanamz/agentry/pkg/tools/mcpserver"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remote serves tools from an in-process agentry MCP server and connects a
// client to it.
func remote(t *testing.T, tools ...toolbox.Tool) *MCPClient {
	t.Helper()

	tb := toolbox.New()
	tb.Register(tools...)

	srv := mcpserver.New("remote", "1.0.0", nil)
	srv.RegisterToolBoxes(tb)

	st, ct := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, st) }()

	c, err := Connect(ctx, ct)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
		cancel()
		<-done
	})
	return c
}

var shout = toolbox.Tool{
	Name:        "shout",
	Description: "Uppercases text",
	InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`),
	Handler: func(_ context.Context, input json.RawMessage) (string, error) {
		var in struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(input, &in); err != nil {
			return "", err
		}
		return strings.ToUpper(in.Text), nil
	},
}

var whisper = toolbox.Tool{
	Name:    "whisper",
	Handler: func(context.Context, json.RawMessage) (string, error) { return "psst", nil },
}

func TestToolBox(t *testing.T) {
	c := remote(t, shout, whisper)

	tb, err := c.ToolBox(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"shout", "whisper"}, tb.Names())

	got, _ := tb.Get("shout")
	assert.Equal(t, "Uppercases text", got.Description)
	assert.Contains(t, string(got.InputSchema), `"text"`)

	tr := tb.Call(context.Background(), content.ToolCall{ID: "c1", Name: "shout", Arguments: `{"text":"hey"}`})
	assert.False(t, tr.IsError)
	assert.Equal(t, "HEY", tr.Content)
	assert.Equal(t, "c1", tr.ToolCallID)
}

func TestToolBox_Only(t *testing.T) {
	c := remote(t, shout, whisper)

	tb, err := c.ToolBox(context.Background(), "whisper", "missing")
	require.NoError(t, err)
	assert.Equal(t, []string{"whisper"}, tb.Names())
}

func TestCallTool_RemoteError(t *testing.T) {
	c := remote(t, toolbox.Tool{
		Name:    "fail",
		Handler: func(context.Context, json.RawMessage) (string, error) { return "", errors.New("disk full") },
	})

	_, err := c.CallTool(context.Background(), "fail", nil)
	require.Error(t, err)
	assert.EqualError(t, err, "mcpclient: fail: disk full")
}

func TestCallTool_BadArguments(t *testing.T) {
	c := remote(t, shout)

	_, err := c.CallTool(context.Background(), "shout", json.RawMessage(`[1,2]`))
	assert.ErrorContains(t, err, "arguments")
}

func TestResultText(t *testing.T) {
	text := resultText([]mcp.Content{
		&mcp.TextContent{Text: "chart ready"},
		&mcp.ImageContent{MIMEType: "image/png"},
	})
	assert.Equal(t, "chart ready\n[image image/png]", text)
}

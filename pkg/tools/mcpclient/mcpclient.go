// Package mcpclient imports the tools of an external MCP server into a
// ToolBox so agents can call them like built-in tools.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is announced to servers during the handshake.
const Version = "0.1.0"

// MCPClient is an open session with one MCP server.
type MCPClient struct {
	session *mcp.ClientSession
}

// New starts command as a stdio MCP server and connects to it. The process
// lives until Close.
func New(ctx context.Context, command string, args ...string) (*MCPClient, error) {
	cmd := exec.Command(command, args...) //nolint:gosec // command comes from configuration
	return Connect(ctx, &mcp.CommandTransport{Command: cmd})
}

// Connect opens a session over any SDK transport.
func Connect(ctx context.Context, transport mcp.Transport) (*MCPClient, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "agentry", Version: Version}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect: %w", err)
	}
	return &MCPClient{session: session}, nil
}

// ToolBox mirrors the server's tools. With only set, tools not named in it
// are left out. Each handler forwards to CallTool.
func (c *MCPClient) ToolBox(ctx context.Context, only ...string) (*toolbox.ToolBox, error) {
	listed, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: list tools: %w", err)
	}

	tb := toolbox.New()
	for _, t := range listed.Tools {
		if len(only) > 0 && !slices.Contains(only, t.Name) {
			continue
		}

		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("mcpclient: %s: schema: %w", t.Name, err)
		}

		name := t.Name
		tb.Register(toolbox.Tool{
			Name:        name,
			Description: t.Description,
			InputSchema: schema,
			Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
				return c.CallTool(ctx, name, input)
			},
		})
	}
	return tb, nil
}

// CallTool runs one tool on the server. Text parts of the result are joined
// by newlines; other parts appear as a placeholder naming their type. A
// result the server flags as an error comes back as an error.
func (c *MCPClient) CallTool(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	var args map[string]any
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return "", fmt.Errorf("mcpclient: %s: arguments: %w", name, err)
		}
	}

	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("mcpclient: %s: %w", name, err)
	}

	text := resultText(res.Content)
	if res.IsError {
		return "", fmt.Errorf("mcpclient: %s: %s", name, text)
	}
	return text, nil
}

func resultText(parts []mcp.Content) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case *mcp.TextContent:
			out = append(out, v.Text)
		case *mcp.ImageContent:
			out = append(out, "[image "+v.MIMEType+"]")
		case *mcp.AudioContent:
			out = append(out, "[audio "+v.MIMEType+"]")
		default:
			out = append(out, fmt.Sprintf("[%T]", p))
		}
	}
	return strings.Join(out, "\n")
}

// Close ends the session, stopping a server started by New.
func (c *MCPClient) Close() error {
	return c.session.Close()
}

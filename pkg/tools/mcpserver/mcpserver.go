// Package mcpserver publishes agentry toolkits as an MCP server, so any MCP
// client can call the same tools the agents use.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/germanamz/agentry/pkg/chats/content"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var emptyObject = json.RawMessage(`{"type":"object"}`)

// MCPServer serves tools over MCP. Calls are dispatched through a
// toolbox.ToolBox, so clients see failures exactly as an agent would: as
// error results, never as protocol errors.
type MCPServer struct {
	server *mcp.Server
	tools  *toolbox.ToolBox
	names  []string
	logger *slog.Logger
}

// New creates a server announcing itself as name/version. A nil logger
// uses slog.Default().
func New(name, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}

	return &MCPServer{
		server: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		tools:  toolbox.New(),
		logger: logger,
	}
}

// RegisterToolBoxes publishes every tool of tbs. When two toolboxes define
// the same name the first one wins.
func (s *MCPServer) RegisterToolBoxes(tbs ...*toolbox.ToolBox) {
	for _, tb := range tbs {
		for _, t := range tb.Tools() {
			if _, dup := s.tools.Get(t.Name); dup {
				s.logger.Warn("mcp: duplicate tool skipped", "tool", t.Name)
				continue
			}

			s.tools.Register(t)
			s.names = append(s.names, t.Name)
			s.server.AddTool(sdkTool(t), s.handle(t.Name))
		}
	}
}

// ToolNames lists the published tools in registration order.
func (s *MCPServer) ToolNames() []string {
	return append([]string(nil), s.names...)
}

// Serve speaks MCP over in and out (usually stdin and stdout) until ctx
// ends or the client disconnects. Neither stream is closed.
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return s.Run(ctx, &mcp.IOTransport{Reader: io.NopCloser(in), Writer: writeNopCloser{out}})
}

// Run serves over any SDK transport.
func (s *MCPServer) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

func (s *MCPServer) handle(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := string(req.Params.Arguments)
		if args == "" || args == "null" {
			args = "{}"
		}

		start := time.Now()
		tr := s.tools.Call(ctx, content.ToolCall{Name: name, Arguments: args})
		s.logger.Debug("mcp: tool call", "tool", name, "error", tr.IsError, "duration", time.Since(start))

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: tr.Content}},
			IsError: tr.IsError,
		}, nil
	}
}

func sdkTool(t toolbox.Tool) *mcp.Tool {
	schema := t.InputSchema
	if len(schema) == 0 {
		schema = emptyObject
	}
	return &mcp.Tool{Name: t.Name, Description: t.Description, InputSchema: schema}
}

type writeNopCloser struct{ io.Writer }

func (writeNopCloser) Close() error { return nil }

// Package tools holds the tool registry agents dispatch through and its MCP
// bridges.
//
//   - [github.com/germanamz/agentry/pkg/tools/toolbox]: Tool and the ToolBox registry
//   - [github.com/germanamz/agentry/pkg/tools/mcpserver]: exposes toolboxes over MCP
//   - [github.com/germanamz/agentry/pkg/tools/mcpclient]: imports tools from an external MCP server
package tools

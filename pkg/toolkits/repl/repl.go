// Package repl provides a persistent Python REPL as agent tools. Globals
// survive between executions until the session is reset.
package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/germanamz/agentry/pkg/tools/toolbox"
)

// Tool names.
const (
	ExecuteTool = "python_repl_tool"
	ResetTool   = "repl_reset"
)

// ErrClosed is returned by a Session after Close.
var ErrClosed = errors.New("repl: session closed")

// Session executes code in a persistent interpreter.
type Session interface {
	// Execute runs code and returns what it printed. A *ExecError reports an
	// exception raised by the code itself.
	Execute(ctx context.Context, code string) (string, error)
	// Reset discards all interpreter state.
	Reset(ctx context.Context) error
	// Close releases the interpreter. The session is unusable afterwards.
	Close() error
}

// ExecError is an exception raised by executed code.
type ExecError struct {
	Message string
}

func (e *ExecError) Error() string { return e.Message }

// REPL exposes a Session as tools.
type REPL struct {
	session Session
}

// New wraps session.
func New(session Session) *REPL {
	return &REPL{session: session}
}

// Tools returns a ToolBox with the execute and reset tools.
func (r *REPL) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(r.executeTool(), r.resetTool())
	return tb
}

func (r *REPL) executeTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        ExecuteTool,
		Description: "Execute Python code in a persistent REPL. Variables and imports survive between calls. Use print(...) to see a value; the printed output is returned.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"code":{"type":"string","description":"The Python code to execute"}},"required":["code"]}`),
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Code string `json:"code"`
			}
			if err := toolbox.Decode(ExecuteTool, input, &in); err != nil {
				return "", err
			}

			out, err := r.session.Execute(ctx, in.Code)
			if err != nil {
				return "Failed to execute. Error: " + err.Error(), nil
			}

			return fmt.Sprintf("Successfully executed:\n```python\n%s\n```\nStdout: %s", in.Code, out), nil
		},
	}
}

func (r *REPL) resetTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        ResetTool,
		Description: "Reset the Python REPL, discarding all variables and imports.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
		Handler: func(ctx context.Context, _ json.RawMessage) (string, error) {
			if err := r.session.Reset(ctx); err != nil {
				return "", fmt.Errorf("%s: %w", ResetTool, err)
			}
			return "REPL state cleared.", nil
		},
	}
}

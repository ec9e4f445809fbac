package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler runs a tool with its JSON input and returns a text result.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool is a named capability with a JSON Schema describing its input.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Decode unmarshals a tool input into v, prefixing errors with the tool name.
// Empty input decodes as an empty object.
func Decode(tool string, input json.RawMessage, v any) error {
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("%s: invalid input: %w", tool, err)
	}
	return nil
}

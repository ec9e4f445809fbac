// Package docio provides document tools confined to one working directory:
// outlines, whole-document writes, line range reads and line inserts.
package docio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/germanamz/agentry/pkg/toolkits/fsutil"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
)

// Tool names.
const (
	CreateOutline = "create_outline"
	ReadDocument  = "read_document"
	WriteDocument = "write_document"
	EditDocument  = "edit_document"
)

// Docs exposes the document tools for a working directory.
type Docs struct {
	root   string
	locker fsutil.Locker
}

// New creates Docs rooted at workdir, creating the directory if needed.
func New(workdir string) (*Docs, error) {
	if err := os.MkdirAll(workdir, 0o750); err != nil {
		return nil, fmt.Errorf("docio: %w", err)
	}
	return &Docs{root: workdir}, nil
}

// Root returns the working directory.
func (d *Docs) Root() string { return d.root }

// Tools returns a ToolBox with all document tools.
func (d *Docs) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(d.outlineTool(), d.readTool(), d.writeTool(), d.editTool())
	return tb
}

// --- create_outline ---

type outlineInput struct {
	Points   []string `json:"points"`
	FileName string   `json:"file_name"`
}

func (d *Docs) outlineTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        CreateOutline,
		Description: "Create and save an outline. Writes the points as a numbered list to a file in the working directory.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"points":{"type":"array","items":{"type":"string"},"description":"List of main points or sections"},"file_name":{"type":"string","description":"File path to save the outline"}},"required":["points","file_name"]}`),
		Handler:     d.handleOutline,
	}
}

func (d *Docs) handleOutline(_ context.Context, input json.RawMessage) (string, error) {
	var in outlineInput
	if err := toolbox.Decode(CreateOutline, input, &in); err != nil {
		return "", err
	}

	path, err := fsutil.Resolve(d.root, in.FileName)
	if err != nil {
		return "", fmt.Errorf("%s: %w", CreateOutline, err)
	}

	var b strings.Builder
	for i, p := range in.Points {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}

	d.locker.Lock(path)
	defer d.locker.Unlock(path)

	if err := fsutil.WriteFile(path, []byte(b.String())); err != nil {
		return "", fmt.Errorf("%s: %w", CreateOutline, err)
	}

	return "Outline saved to " + in.FileName, nil
}

// --- read_document ---

type readInput struct {
	FileName string `json:"file_name"`
	Start    *int   `json:"start"`
	End      *int   `json:"end"`
}

func (d *Docs) readTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        ReadDocument,
		Description: "Read a document from the working directory, optionally only lines start (0-based, inclusive) to end (exclusive).",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"file_name":{"type":"string","description":"File path to read the document from"},"start":{"type":"integer","description":"The start line. Default is 0"},"end":{"type":"integer","description":"The end line. Default is the end of the document"}},"required":["file_name"]}`),
		Handler:     d.handleRead,
	}
}

func (d *Docs) handleRead(_ context.Context, input json.RawMessage) (string, error) {
	var in readInput
	if err := toolbox.Decode(ReadDocument, input, &in); err != nil {
		return "", err
	}

	path, err := fsutil.Resolve(d.root, in.FileName)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ReadDocument, err)
	}

	d.locker.Lock(path)
	data, err := os.ReadFile(path) //nolint:gosec // confined to the working directory
	d.locker.Unlock(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ReadDocument, err)
	}

	lines := splitLines(string(data))
	start, end := 0, len(lines)
	if in.Start != nil {
		start = clampIndex(*in.Start, len(lines))
	}
	if in.End != nil {
		end = clampIndex(*in.End, len(lines))
	}
	if start >= end {
		return "", nil
	}

	return strings.Join(lines[start:end], "\n"), nil
}

// clampIndex maps a slice bound onto [0, n], counting negatives from the end.
func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return min(max(i, 0), n)
}

// --- write_document ---

type writeInput struct {
	Content  string `json:"content"`
	FileName string `json:"file_name"`
}

func (d *Docs) writeTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        WriteDocument,
		Description: "Create and save a text document in the working directory, replacing any previous content.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"content":{"type":"string","description":"Text content to be written into the document"},"file_name":{"type":"string","description":"File path to save the document"}},"required":["content","file_name"]}`),
		Handler:     d.handleWrite,
	}
}

func (d *Docs) handleWrite(_ context.Context, input json.RawMessage) (string, error) {
	var in writeInput
	if err := toolbox.Decode(WriteDocument, input, &in); err != nil {
		return "", err
	}

	path, err := fsutil.Resolve(d.root, in.FileName)
	if err != nil {
		return "", fmt.Errorf("%s: %w", WriteDocument, err)
	}

	d.locker.Lock(path)
	defer d.locker.Unlock(path)

	if err := fsutil.WriteFile(path, []byte(in.Content)); err != nil {
		return "", fmt.Errorf("%s: %w", WriteDocument, err)
	}

	return "Document saved to " + in.FileName, nil
}

// --- edit_document ---

type editInput struct {
	FileName string            `json:"file_name"`
	Inserts  map[string]string `json:"inserts"`
}

func (d *Docs) editTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        EditDocument,
		Description: "Edit a document by inserting text at specific line numbers. Keys are 1-indexed line numbers, values the text to insert at that line. Inserts are applied in ascending line order.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"file_name":{"type":"string","description":"Path of the document to be edited"},"inserts":{"type":"object","additionalProperties":{"type":"string"},"description":"Map of 1-indexed line number to the text inserted at that line"}},"required":["file_name","inserts"]}`),
		Handler:     d.handleEdit,
	}
}

type insert struct {
	line int
	text string
}

func (d *Docs) handleEdit(_ context.Context, input json.RawMessage) (string, error) {
	var in editInput
	if err := toolbox.Decode(EditDocument, input, &in); err != nil {
		return "", err
	}

	inserts := make([]insert, 0, len(in.Inserts))
	for k, v := range in.Inserts {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return "", fmt.Errorf("%s: line number %q is not an integer", EditDocument, k)
		}
		inserts = append(inserts, insert{line: n, text: v})
	}
	slices.SortFunc(inserts, func(a, b insert) int { return a.line - b.line })

	path, err := fsutil.Resolve(d.root, in.FileName)
	if err != nil {
		return "", fmt.Errorf("%s: %w", EditDocument, err)
	}

	d.locker.Lock(path)
	defer d.locker.Unlock(path)

	data, err := os.ReadFile(path) //nolint:gosec // confined to the working directory
	if err != nil {
		return "", fmt.Errorf("%s: %w", EditDocument, err)
	}

	lines := splitLines(string(data))
	for _, ins := range inserts {
		if ins.line < 1 || ins.line > len(lines)+1 {
			return fmt.Sprintf("Error: Line number %d is out of range.", ins.line), nil
		}
		lines = slices.Insert(lines, ins.line-1, ins.text)
	}

	out := strings.Join(lines, "\n")
	if len(lines) > 0 {
		out += "\n"
	}

	if err := fsutil.WriteFile(path, []byte(out)); err != nil {
		return "", fmt.Errorf("%s: %w", EditDocument, err)
	}

	return "Document edited and saved to " + in.FileName, nil
}

// splitLines splits text into lines without their terminators. A trailing
// newline does not produce an empty last line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

package regex

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/germanamz/agentry/pkg/chats/content"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*toolbox.ToolBox, string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print('hi')\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("alpha\nbeta\ngamma\ndelta\nepsilon\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "util.py"), []byte("x = 1\n"), 0o644))

	return New(dir).Tools(), dir
}

func call(t *testing.T, tb *toolbox.ToolBox, name string, in any) string {
	t.Helper()

	data, err := json.Marshal(in)
	require.NoError(t, err)

	tr := tb.Call(context.Background(), content.ToolCall{ID: "tc", Name: name, Arguments: string(data)})
	require.False(t, tr.IsError, tr.Content)

	return tr.Content
}

func TestTools_Names(t *testing.T) {
	tb, _ := setup(t)

	assert.ElementsMatch(t, []string{
		CompilePattern, SearchFiles, SearchText, ExtractMatches, ReplaceInFile, ExplainPattern,
	}, tb.Names())
}

func TestCompilePattern(t *testing.T) {
	tb, _ := setup(t)

	out := call(t, tb, CompilePattern, map[string]any{"pattern": `\d+`})
	assert.Contains(t, out, "✓ Regex pattern compiled successfully!")
	assert.Contains(t, out, "Flags: None")

	out = call(t, tb, CompilePattern, map[string]any{"pattern": `abc`, "flags": "IGNORECASE, DOTALL"})
	assert.Contains(t, out, "Flags: IGNORECASE, DOTALL")

	out = call(t, tb, CompilePattern, map[string]any{"pattern": `(unclosed`})
	assert.True(t, strings.HasPrefix(out, "✗ Regex compilation failed: "), out)
}

func TestCompile_Flags(t *testing.T) {
	re, err := Compile("hello", "IGNORECASE")
	require.NoError(t, err)
	assert.True(t, re.MatchString("HeLLo"))

	re, err = Compile("^b", "MULTILINE")
	require.NoError(t, err)
	assert.True(t, re.MatchString("a\nb"))

	re, err = Compile("a.b", "DOTALL")
	require.NoError(t, err)
	assert.True(t, re.MatchString("a\nb"))

	re, err = Compile("a  b # letters\n [ ]c", "VERBOSE")
	require.NoError(t, err)
	assert.Equal(t, "ab[ ]c", re.String())
	assert.True(t, re.MatchString("ab c"))
}

func TestSearchFiles(t *testing.T) {
	tb, dir := setup(t)

	out := call(t, tb, SearchFiles, map[string]any{"pattern": `\.py$`})
	assert.Contains(t, out, "Found 2 file(s) matching pattern: \\.py$")
	assert.Contains(t, out, filepath.Join(dir, "main.py"))
	assert.Contains(t, out, filepath.Join(dir, "sub", "util.py"))

	out = call(t, tb, SearchFiles, map[string]any{"pattern": `\.py$`, "recursive": false})
	assert.Contains(t, out, "Found 1 file(s)")
	assert.NotContains(t, out, "util.py")

	out = call(t, tb, SearchFiles, map[string]any{"pattern": `\.py$`, "max_results": 1})
	assert.Contains(t, out, "Found 1 file(s)")

	out = call(t, tb, SearchFiles, map[string]any{"pattern": `\.go$`})
	assert.Equal(t, "No files found matching pattern: \\.go$", out)

	out = call(t, tb, SearchFiles, map[string]any{"pattern": `x`, "search_path": "missing"})
	assert.Equal(t, "✗ Search path does not exist: "+filepath.Join(dir, "missing"), out)
}

func TestSearchText(t *testing.T) {
	tb, dir := setup(t)
	path := filepath.Join(dir, "notes.txt")

	out := call(t, tb, SearchText, map[string]any{"file_path": "notes.txt", "pattern": "^gam", "context_lines": 1})

	assert.Contains(t, out, "Found 1 match(es) for pattern: ^gam\nFile: "+path)
	assert.Contains(t, out, "Match #1 (Line 3):")
	assert.Contains(t, out, "      2 | beta\n→     3 | gamma\n      4 | delta\n")
	assert.NotContains(t, out, "alpha")

	out = call(t, tb, SearchText, map[string]any{"file_path": "notes.txt", "pattern": "zeta"})
	assert.Equal(t, "No matches found for pattern: zeta\nFile: "+path, out)

	out = call(t, tb, SearchText, map[string]any{"file_path": "nope.txt", "pattern": "a"})
	assert.Equal(t, "✗ File not found: "+filepath.Join(dir, "nope.txt"), out)

	out = call(t, tb, SearchText, map[string]any{"file_path": "sub", "pattern": "a"})
	assert.Equal(t, "✗ Path is not a file: "+filepath.Join(dir, "sub"), out)
}

func TestExtractMatches(t *testing.T) {
	tb, _ := setup(t)

	out := call(t, tb, ExtractMatches, map[string]any{
		"text":    "mail bob@x.io, ann@y.org and bob@x.io again",
		"pattern": `(\w+)@[\w.]+`,
	})
	assert.Contains(t, out, "Extracted 2 unique match(es) from 3 total match(es)")
	assert.Contains(t, out, "  1. bob@x.io\n  2. ann@y.org\n")

	out = call(t, tb, ExtractMatches, map[string]any{
		"text":         "mail bob@x.io, ann@y.org",
		"pattern":      `(\w+)@[\w.]+`,
		"group_number": 1,
	})
	assert.Contains(t, out, "  1. bob\n  2. ann\n")

	out = call(t, tb, ExtractMatches, map[string]any{"text": "abc", "pattern": `\d`})
	assert.Equal(t, "No matches found for pattern: \\d", out)
}

func TestReplace_DryRunDoesNotWrite(t *testing.T) {
	tb, dir := setup(t)
	path := filepath.Join(dir, "notes.txt")

	out := call(t, tb, ReplaceInFile, map[string]any{"file_path": "notes.txt", "pattern": "(?m)a$", "replacement": "A"})

	assert.Contains(t, out, "[DRY RUN] Would replace 4 occurrence(s)")
	assert.Contains(t, out, "-alpha")
	assert.Contains(t, out, "+alphA")
	assert.Contains(t, out, "To apply changes, set dry_run=false")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alpha\nbeta\ngamma\ndelta\nepsilon\n", string(data))
}

func TestReplace_Write(t *testing.T) {
	tb, dir := setup(t)
	path := filepath.Join(dir, "notes.txt")

	out := call(t, tb, ReplaceInFile, map[string]any{
		"file_path":   "notes.txt",
		"pattern":     `(?m)^(\w)(\w*)$`,
		"replacement": `\2-\1`,
		"dry_run":     false,
	})
	assert.Equal(t, "✓ Successfully replaced 5 occurrence(s) in file: "+path, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "lpha-a\neta-b\namma-g\nelta-d\npsilon-e\n", string(data))

	out = call(t, tb, ReplaceInFile, map[string]any{"file_path": "notes.txt", "pattern": "zzz", "replacement": "y"})
	assert.Equal(t, "No matches found for pattern: zzz", out)

	out = call(t, tb, ReplaceInFile, map[string]any{"file_path": "notes.txt", "pattern": "(", "replacement": "y"})
	assert.True(t, strings.HasPrefix(out, "✗ Invalid regex pattern: "), out)
}

func TestTranslateReplacement(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`\1`, `${1}`},
		{`\g<word>!`, `${word}!`},
		{`cost $5`, `cost $$5`},
		{`plain`, `plain`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TranslateReplacement(tt.in))
		})
	}
}

func TestExplain(t *testing.T) {
	out := Explain(`^\w+\.py$`)

	assert.Contains(t, out, "Pattern Type: Python files")
	assert.Contains(t, out, `\w = Match word characters`)
	assert.Contains(t, out, "^ = Start of string anchor")
	assert.Contains(t, out, "$ = End of string anchor")
	assert.Contains(t, out, "✓ Pattern is valid and ready to use!")
	assert.Contains(t, out, "✓ 'file.py' matches")

	out = Explain(`[abc`)
	assert.True(t, strings.HasPrefix(out, "✗ Invalid regex pattern: "), out)

	assert.Contains(t, Explain("xyz"), "Pattern Type: Custom pattern")
}

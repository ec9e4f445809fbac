// Package regex provides regular expression tools: pattern validation and
// explanation, file search by path, line search inside a file, match
// extraction, and in-file replacement with a dry-run diff preview.
//
// Patterns use Go's RE2 syntax. Relative paths resolve against the root
// directory given to New.
package regex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/germanamz/agentry/pkg/toolkits/fsutil"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"github.com/pmezard/go-difflib/difflib"
)

// Tool names.
const (
	CompilePattern  = "compile_regex_pattern"
	SearchFiles     = "search_files_by_pattern"
	SearchText      = "search_text_in_file"
	ExtractMatches  = "extract_pattern_matches"
	ReplaceInFile   = "replace_pattern_in_file"
	ExplainPattern  = "validate_and_explain_pattern"
	previewLines    = 20
	defaultMaxFiles = 100
)

var rule = strings.Repeat("=", 70)
var thinRule = strings.Repeat("-", 70)

// Regex exposes the regex tools.
type Regex struct {
	root   string
	locker fsutil.Locker
}

// New creates the tools with relative paths resolved against root. An empty
// root means the process working directory.
func New(root string) *Regex {
	if root == "" {
		root = "."
	}
	return &Regex{root: root}
}

// Tools returns a ToolBox with all regex tools.
func (r *Regex) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(
		r.compileTool(), r.searchFilesTool(), r.searchTextTool(),
		r.extractTool(), r.replaceTool(), r.explainTool(),
	)
	return tb
}

func (r *Regex) abs(p string) (string, error) {
	if p == "" {
		p = "."
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.root, p)
	}
	return filepath.Abs(p)
}

// --- compile_regex_pattern ---

type compileInput struct {
	Pattern string `json:"pattern"`
	Flags   string `json:"flags"`
}

func (r *Regex) compileTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        CompilePattern,
		Description: "Compile and validate a regex pattern. Optional comma-separated flags: IGNORECASE, MULTILINE, DOTALL, VERBOSE.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"pattern":{"type":"string","description":"The regex pattern to compile"},"flags":{"type":"string","description":"Optional flags: IGNORECASE, MULTILINE, DOTALL, VERBOSE (comma-separated)"}},"required":["pattern"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in compileInput
			if err := toolbox.Decode(CompilePattern, input, &in); err != nil {
				return "", err
			}

			if _, err := Compile(in.Pattern, in.Flags); err != nil {
				return "✗ Regex compilation failed: " + err.Error(), nil
			}

			flags := in.Flags
			if flags == "" {
				flags = "None"
			}

			return fmt.Sprintf("✓ Regex pattern compiled successfully!\nPattern: %s\nFlags: %s\nDescription: Pattern will match strings according to the provided regex rules.", in.Pattern, flags), nil
		},
	}
}

// Compile compiles pattern with comma-separated flag names. Unknown flag
// names are ignored. VERBOSE strips unescaped whitespace and # comments
// outside character classes before compiling.
func Compile(pattern, flags string) (*regexp.Regexp, error) {
	var prefix string

	for f := range strings.SplitSeq(flags, ",") {
		switch strings.ToUpper(strings.TrimSpace(f)) {
		case "IGNORECASE":
			prefix += "i"
		case "MULTILINE":
			prefix += "m"
		case "DOTALL":
			prefix += "s"
		case "VERBOSE":
			pattern = stripVerbose(pattern)
		}
	}

	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}

	return regexp.Compile(pattern)
}

func stripVerbose(p string) string {
	var b strings.Builder
	inClass, escaped, comment := false, false, false

	for _, c := range p {
		switch {
		case comment:
			if c == '\n' {
				comment = false
			}
			continue
		case escaped:
			escaped = false
			b.WriteRune('\\')
		case c == '\\':
			escaped = true
			continue
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '#':
			comment = true
			continue
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			continue
		}
		b.WriteRune(c)
	}

	return b.String()
}

// --- search_files_by_pattern ---

type searchFilesInput struct {
	Pattern    string `json:"pattern"`
	SearchPath string `json:"search_path"`
	Recursive  *bool  `json:"recursive"`
	MaxResults int    `json:"max_results"`
}

var errEnough = errors.New("enough results")

func (r *Regex) searchFilesTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        SearchFiles,
		Description: "Search for files whose full path matches a regex pattern, for example `\\.py$`.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"pattern":{"type":"string","description":"The regex pattern to match file paths"},"search_path":{"type":"string","description":"Directory to search in (default: current directory)"},"recursive":{"type":"boolean","description":"Search subdirectories (default: true)"},"max_results":{"type":"integer","description":"Maximum number of results (default: 100)"}},"required":["pattern"]}`),
		Handler:     r.handleSearchFiles,
	}
}

func (r *Regex) handleSearchFiles(_ context.Context, input json.RawMessage) (string, error) {
	var in searchFilesInput
	if err := toolbox.Decode(SearchFiles, input, &in); err != nil {
		return "", err
	}
	if in.MaxResults <= 0 {
		in.MaxResults = defaultMaxFiles
	}
	recursive := in.Recursive == nil || *in.Recursive

	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return "✗ Invalid regex pattern: " + err.Error(), nil
	}

	root, err := r.abs(in.SearchPath)
	if err != nil {
		return "", fmt.Errorf("%s: %w", SearchFiles, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "✗ Search path does not exist: " + root, nil
	}

	var found []string

	if recursive {
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // unreadable entries are skipped
			}
			if d.IsDir() || !re.MatchString(path) {
				return nil
			}
			found = append(found, path)
			if len(found) >= in.MaxResults {
				return errEnough
			}
			return nil
		})
		if err != nil && !errors.Is(err, errEnough) {
			return "", fmt.Errorf("%s: %w", SearchFiles, err)
		}
	} else if info.IsDir() {
		entries, err := os.ReadDir(root)
		if err != nil {
			return "", fmt.Errorf("%s: %w", SearchFiles, err)
		}
		for _, e := range entries {
			path := filepath.Join(root, e.Name())
			if e.Type().IsRegular() && re.MatchString(path) {
				found = append(found, path)
				if len(found) >= in.MaxResults {
					break
				}
			}
		}
	}

	if len(found) == 0 {
		return "No files found matching pattern: " + in.Pattern, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d file(s) matching pattern: %s\n%s\n", len(found), in.Pattern, rule)
	for i, p := range found {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}

	return b.String(), nil
}

// --- search_text_in_file ---

type searchTextInput struct {
	FilePath     string `json:"file_path"`
	Pattern      string `json:"pattern"`
	ContextLines *int   `json:"context_lines"`
}

func (r *Regex) searchTextTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        SearchText,
		Description: "Find all lines of a file matching a regex pattern and show them with surrounding context. Matching lines are marked with →.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"file_path":{"type":"string","description":"Path to the file to search in"},"pattern":{"type":"string","description":"The regex pattern to search for"},"context_lines":{"type":"integer","description":"Context lines before and after each match (default: 2)"}},"required":["file_path","pattern"]}`),
		Handler:     r.handleSearchText,
	}
}

func (r *Regex) readRegular(p string) (string, []byte, string) {
	abs, err := r.abs(p)
	if err != nil {
		return "", nil, "✗ File not found: " + p
	}
	info, err := os.Stat(abs)
	if err != nil {
		return abs, nil, "✗ File not found: " + abs
	}
	if !info.Mode().IsRegular() {
		return abs, nil, "✗ Path is not a file: " + abs
	}
	data, err := os.ReadFile(abs) //nolint:gosec // tool reads user-named files by design
	if err != nil {
		return abs, nil, "✗ Error reading file: " + err.Error()
	}
	return abs, data, ""
}

func (r *Regex) handleSearchText(_ context.Context, input json.RawMessage) (string, error) {
	var in searchTextInput
	if err := toolbox.Decode(SearchText, input, &in); err != nil {
		return "", err
	}
	ctxLines := 2
	if in.ContextLines != nil && *in.ContextLines >= 0 {
		ctxLines = *in.ContextLines
	}

	abs, data, problem := r.readRegular(in.FilePath)
	if problem != "" {
		return problem, nil
	}

	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return "✗ Invalid regex pattern: " + err.Error(), nil
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var hits []int
	for i, l := range lines {
		if re.MatchString(l) {
			hits = append(hits, i)
		}
	}

	if len(hits) == 0 {
		return fmt.Sprintf("No matches found for pattern: %s\nFile: %s", in.Pattern, abs), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d match(es) for pattern: %s\nFile: %s\n%s\n", len(hits), in.Pattern, abs, rule)

	for n, i := range hits {
		fmt.Fprintf(&b, "\nMatch #%d (Line %d):\n%s\n", n+1, i+1, thinRule)
		for j := max(0, i-ctxLines); j < i; j++ {
			fmt.Fprintf(&b, "  %5d | %s\n", j+1, lines[j])
		}
		fmt.Fprintf(&b, "→ %5d | %s\n", i+1, lines[i])
		for j := i + 1; j < min(len(lines), i+1+ctxLines); j++ {
			fmt.Fprintf(&b, "  %5d | %s\n", j+1, lines[j])
		}
	}

	return b.String(), nil
}

// --- extract_pattern_matches ---

type extractInput struct {
	Text        string `json:"text"`
	Pattern     string `json:"pattern"`
	GroupNumber int    `json:"group_number"`
}

func (r *Regex) extractTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        ExtractMatches,
		Description: "Extract all matches of a regex pattern from text, deduplicated in order of first appearance. group_number selects a capture group (0 = whole match).",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string","description":"The text to search in"},"pattern":{"type":"string","description":"The regex pattern to extract"},"group_number":{"type":"integer","description":"Capture group to extract (0 for full match, default: 0)"}},"required":["text","pattern"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in extractInput
			if err := toolbox.Decode(ExtractMatches, input, &in); err != nil {
				return "", err
			}

			re, err := regexp.Compile(in.Pattern)
			if err != nil {
				return "✗ Invalid regex pattern: " + err.Error(), nil
			}

			all, unique := Extract(re, in.Text, in.GroupNumber)
			if all == 0 {
				return "No matches found for pattern: " + in.Pattern, nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Extracted %d unique match(es) from %d total match(es)\nPattern: %s\n%s\n", len(unique), all, in.Pattern, rule)
			for i, m := range unique {
				fmt.Fprintf(&b, "%3d. %s\n", i+1, m)
			}

			return b.String(), nil
		},
	}
}

// Extract returns the total number of matches of group in text and the
// distinct values in order of first appearance. Matches where the group does
// not exist are skipped.
func Extract(re *regexp.Regexp, text string, group int) (int, []string) {
	if group < 0 || group > re.NumSubexp() {
		return 0, nil
	}

	seen := make(map[string]struct{})
	var unique []string
	total := 0

	for _, m := range re.FindAllStringSubmatch(text, -1) {
		v := m[group]
		total++
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}

	return total, unique
}

// --- replace_pattern_in_file ---

type replaceInput struct {
	FilePath    string `json:"file_path"`
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	DryRun      *bool  `json:"dry_run"`
}

func (r *Regex) replaceTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        ReplaceInFile,
		Description: "Replace regex matches in a file. Runs as a dry run by default and shows a diff preview; set dry_run=false to write. The replacement may reference groups as \\1, \\2 or \\g<name>.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"file_path":{"type":"string","description":"Path to the file to modify"},"pattern":{"type":"string","description":"The regex pattern to find"},"replacement":{"type":"string","description":"The replacement string (groups: \\1, \\2, ...)"},"dry_run":{"type":"boolean","description":"Preview changes without modifying the file (default: true)"}},"required":["file_path","pattern","replacement"]}`),
		Handler:     r.handleReplace,
	}
}

func (r *Regex) handleReplace(_ context.Context, input json.RawMessage) (string, error) {
	var in replaceInput
	if err := toolbox.Decode(ReplaceInFile, input, &in); err != nil {
		return "", err
	}
	dryRun := in.DryRun == nil || *in.DryRun

	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return "✗ Invalid regex pattern: " + err.Error(), nil
	}

	abs, err := r.abs(in.FilePath)
	if err != nil {
		return "✗ File not found: " + in.FilePath, nil
	}

	r.locker.Lock(abs)
	defer r.locker.Unlock(abs)

	_, data, problem := r.readRegular(abs)
	if problem != "" {
		return problem, nil
	}

	original := string(data)
	count := len(re.FindAllStringIndex(original, -1))
	if count == 0 {
		return "No matches found for pattern: " + in.Pattern, nil
	}

	updated := re.ReplaceAllString(original, TranslateReplacement(in.Replacement))

	if !dryRun {
		if err := fsutil.WriteFile(abs, []byte(updated)); err != nil {
			return "", fmt.Errorf("%s: %w", ReplaceInFile, err)
		}
		return fmt.Sprintf("✓ Successfully replaced %d occurrence(s) in file: %s", count, abs), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[DRY RUN] Would replace %d occurrence(s)\nFile: %s\n%s\n", count, abs, rule)
	fmt.Fprintf(&b, "Pattern: %s\nReplacement: %s\n%s\n", in.Pattern, in.Replacement, rule)
	fmt.Fprintf(&b, "\nPreview of changes:\n%s\n", thinRule)
	b.WriteString(preview(abs, original, updated))
	b.WriteString("\nTo apply changes, set dry_run=false")

	return b.String(), nil
}

// preview diffs the first previewLines lines of both versions.
func preview(path, before, after string) string {
	head := func(s string) []string {
		lines := difflib.SplitLines(s)
		return lines[:min(len(lines), previewLines)]
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        head(before),
		B:        head(after),
		FromFile: path,
		ToFile:   path + " (replaced)",
		Context:  0,
	})
	if err != nil {
		return fmt.Sprintf("(diff error: %v)\n", err)
	}
	if diff == "" {
		return fmt.Sprintf("(no changes within the first %d lines)\n", previewLines)
	}

	return diff
}

var (
	numberedGroup = regexp.MustCompile(`\\(\d+)`)
	namedGroup    = regexp.MustCompile(`\\g<(\w+)>`)
)

// TranslateReplacement rewrites \1 and \g<name> group references into Go's
// ${1} and ${name} form and escapes literal dollar signs.
func TranslateReplacement(s string) string {
	s = strings.ReplaceAll(s, "$", "$$")
	s = namedGroup.ReplaceAllString(s, "$${$1}")
	return numberedGroup.ReplaceAllString(s, "$${$1}")
}

// --- validate_and_explain_pattern ---

type explainInput struct {
	Pattern string `json:"pattern"`
}

type patternKind struct {
	marker   []string
	label    string
	examples []string
}

var kinds = []patternKind{
	{[]string{`\.py`, ".py"}, "Python files", []string{"file.py", "script.py", "test.py"}},
	{[]string{`\.txt`, ".txt", `\.(txt|doc)`}, "Text files", []string{"document.txt", "readme.txt", "notes.txt"}},
	{[]string{`\d+`}, "Numbers", []string{"123", "0", "999999"}},
	{[]string{`\w+`}, "Words/Alphanumeric", []string{"word", "test", "hello123"}},
	{[]string{`\S+`}, "Non-whitespace", []string{"text", "123", "special!chars"}},
	{[]string{"@"}, "Email-like", []string{"user@example.com", "test@domain.org"}},
}

var components = []struct {
	present func(string) bool
	text    string
}{
	{func(p string) bool { return strings.Contains(p, ".*") }, ".* = Match any character (zero or more times)"},
	{func(p string) bool { return strings.Contains(p, ".+") }, ".+ = Match any character (one or more times)"},
	{func(p string) bool { return strings.Contains(p, `\d`) }, `\d = Match digits (0-9)`},
	{func(p string) bool { return strings.Contains(p, `\w`) }, `\w = Match word characters (a-z, A-Z, 0-9, _)`},
	{func(p string) bool { return strings.Contains(p, `\s`) }, `\s = Match whitespace`},
	{func(p string) bool { return strings.Contains(p, "[") && strings.Contains(p, "]") }, "[...] = Character class (match any character inside)"},
	{func(p string) bool { return strings.Contains(p, "(") && strings.Contains(p, ")") }, "(...) = Capture group"},
	{func(p string) bool { return strings.Contains(p, "|") }, "| = Alternation (OR operator)"},
	{func(p string) bool { return strings.Contains(p, "$") }, "$ = End of string anchor"},
	{func(p string) bool { return strings.Contains(p, "^") }, "^ = Start of string anchor"},
}

func (r *Regex) explainTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        ExplainPattern,
		Description: "Validate a regex pattern and explain its components with example matches.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"pattern":{"type":"string","description":"The regex pattern to explain"}},"required":["pattern"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in explainInput
			if err := toolbox.Decode(ExplainPattern, input, &in); err != nil {
				return "", err
			}
			return Explain(in.Pattern), nil
		},
	}
}

// Explain validates pattern and describes it.
func Explain(pattern string) string {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "✗ Invalid regex pattern: " + err.Error() + "\n\nTip: Ensure special characters are properly escaped."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Regex Pattern Analysis\n%s\nPattern: %s\n%s\n", rule, pattern, thinRule)

	var examples []string
	label := "Custom pattern"
kindLoop:
	for _, k := range kinds {
		for _, m := range k.marker {
			if strings.Contains(pattern, m) {
				label, examples = k.label, k.examples
				break kindLoop
			}
		}
	}
	fmt.Fprintf(&b, "Pattern Type: %s\n", label)

	b.WriteString("\nCommon Components Found:\n")
	for _, c := range components {
		if c.present(pattern) {
			fmt.Fprintf(&b, "  • %s\n", c.text)
		}
	}

	fmt.Fprintf(&b, "\n%s\n✓ Pattern is valid and ready to use!\n", thinRule)

	if len(examples) > 0 {
		b.WriteString("\nExample matches:\n")
		for _, e := range examples {
			if re.MatchString(e) {
				fmt.Fprintf(&b, "  ✓ '%s' matches\n", e)
			} else {
				fmt.Fprintf(&b, "  ✗ '%s' does not match\n", e)
			}
		}
	}

	return b.String()
}

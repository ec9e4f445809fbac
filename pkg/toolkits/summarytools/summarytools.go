// Package summarytools exposes document sizing and chunking helpers as tools
// so an agent can plan a summarization itself.
package summarytools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/germanamz/agentry/pkg/summarize"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Tool names.
const (
	AnalyzeDocument = "analyze_document"
	ChunkText       = "chunk_text"
	EstimateTokens  = "estimate_tokens"
)

const (
	emptyText    = "Error: Empty or whitespace-only text provided."
	previewChars = 150
)

// Tools returns a ToolBox with the summarization helper tools.
func Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(analyzeTool(), chunkTool(), estimateTool())
	return tb
}

type textInput struct {
	Text     string `json:"text"`
	Strategy string `json:"strategy"`
}

var printer = message.NewPrinter(language.English)

// commas formats n with thousands separators.
func commas(n int) string {
	return printer.Sprintf("%d", n)
}

func thresholds() (string, string) {
	return commas(summarize.TokenThresholdLong), commas(summarize.TokenThresholdMassive)
}

func analyzeTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        AnalyzeDocument,
		Description: "Report document statistics (characters, estimated tokens, lines, paragraphs) and the recommended summarization strategy for its size.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string","description":"The document text to analyze"}},"required":["text"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in textInput
			if err := toolbox.Decode(AnalyzeDocument, input, &in); err != nil {
				return "", err
			}
			if strings.TrimSpace(in.Text) == "" {
				return emptyText, nil
			}

			md := summarize.Analyze(in.Text)
			long, massive := thresholds()

			return fmt.Sprintf(`Document Analysis:
- Character count: %s
- Estimated tokens: %s
- Line count: %s
- Paragraph count: %s

Recommended strategy:
- Under %s tokens: Direct summarization
- %s - %s tokens: MAP_REDUCE or REFINE
- Over %s tokens: HIERARCHICAL`,
				commas(md.CharCount), commas(md.EstimatedTokens), commas(md.LineCount), commas(md.ParagraphCount),
				long, long, massive, massive), nil
		},
	}
}

func chunkTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        ChunkText,
		Description: "Split text into chunks for a summarization strategy: MAP_REDUCE (~1500 chars), REFINE (~4000 chars) or HIERARCHICAL (~800 chars). Shows a preview of each chunk.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string","description":"The text to split into chunks"},"strategy":{"type":"string","description":"MAP_REDUCE (default), REFINE or HIERARCHICAL"}},"required":["text"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in textInput
			if err := toolbox.Decode(ChunkText, input, &in); err != nil {
				return "", err
			}
			if strings.TrimSpace(in.Text) == "" {
				return emptyText, nil
			}

			if in.Strategy == "" {
				in.Strategy = string(summarize.MapReduce)
			}
			strategy := summarize.Strategy(strings.ToUpper(in.Strategy))
			if !strategy.Valid() {
				return fmt.Sprintf("Error: Invalid strategy '%s'. Use one of: MAP_REDUCE, REFINE, HIERARCHICAL", in.Strategy), nil
			}

			chunks := summarize.NewChunker().Chunk(in.Text, strategy)
			if len(chunks) == 0 {
				return "Text is too short to chunk.", nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Split into %d chunks using %s strategy:\n\n", len(chunks), strategy)
			for i, c := range chunks {
				runes := []rune(c)
				preview := strings.ReplaceAll(string(runes[:min(len(runes), previewChars)]), "\n", " ")
				if len(runes) > previewChars {
					preview += "..."
				}
				fmt.Fprintf(&b, "Chunk %d (%d chars): %s\n\n", i+1, len(runes), preview)
			}

			return b.String(), nil
		},
	}
}

// Recommendation describes the strategy suited to a token count.
func Recommendation(tokens int) string {
	switch {
	case tokens < summarize.TokenThresholdLong:
		return "Short document - direct summarization recommended."
	case tokens < summarize.TokenThresholdMassive:
		return "Long document - MAP_REDUCE or REFINE strategy recommended."
	default:
		return "Massive document - HIERARCHICAL strategy required."
	}
}

func estimateTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        EstimateTokens,
		Description: "Estimate the token count of a text (about 4 characters per token) and recommend whether it needs chunking.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string","description":"The text to estimate token count for"}},"required":["text"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in textInput
			if err := toolbox.Decode(EstimateTokens, input, &in); err != nil {
				return "", err
			}
			if in.Text == "" {
				return "Token count: 0", nil
			}

			tokens := summarize.CountTokens(in.Text)
			long, massive := thresholds()

			return fmt.Sprintf(`Estimated tokens: %s

%s

Thresholds:
- Short (direct): < %s tokens
- Long (chunked): %s - %s tokens
- Massive (hierarchical): > %s tokens`,
				commas(tokens), Recommendation(tokens), long, long, massive, massive), nil
		},
	}
}

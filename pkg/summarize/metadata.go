package summarize

import "strings"

// Thresholds and limits used by routing and revision.
const (
	// TokenThresholdLong is the estimated token count from which a document
	// is chunked instead of summarized in one call.
	TokenThresholdLong = 2000
	// TokenThresholdMassive forces the hierarchical strategy.
	TokenThresholdMassive = 50000
	// MaxRevisionCount bounds the reflect/revise loop.
	MaxRevisionCount = 2
	// PreviewChars is the size of the beginning and ending previews shown to
	// the router.
	PreviewChars = 4000

	charsPerToken = 4
)

// Metadata describes the size of a document.
type Metadata struct {
	CharCount       int `json:"char_count"`
	EstimatedTokens int `json:"estimated_tokens"`
	LineCount       int `json:"line_count"`
	ParagraphCount  int `json:"paragraph_count"`
}

// CountTokens estimates tokens at four characters each.
func CountTokens(text string) int {
	return len([]rune(text)) / charsPerToken
}

// Analyze computes Metadata for text.
func Analyze(text string) Metadata {
	if text == "" {
		return Metadata{}
	}

	paragraphs := 0
	for p := range strings.SplitSeq(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}

	return Metadata{
		CharCount:       len([]rune(text)),
		EstimatedTokens: CountTokens(text),
		LineCount:       strings.Count(text, "\n") + 1,
		ParagraphCount:  paragraphs,
	}
}

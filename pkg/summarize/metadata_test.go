package summarize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))
	assert.Equal(t, 0, CountTokens("abc"))
	assert.Equal(t, 1, CountTokens("abcdefg"))
	assert.Equal(t, 2, CountTokens("ééééééééé"))
}

func TestAnalyze(t *testing.T) {
	assert.Equal(t, Metadata{}, Analyze(""))

	md := Analyze("a\nb\n\nc")
	assert.Equal(t, Metadata{CharCount: 6, EstimatedTokens: 1, LineCount: 4, ParagraphCount: 2}, md)

	md = Analyze("one\n\n   \n\ntwo")
	assert.Equal(t, 2, md.ParagraphCount)
}

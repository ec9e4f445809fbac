package summarize

import (
	"fmt"
	"strings"
)

const (
	routerSystem = "You are an expert document analyst. Classify the document and choose the summarization strategy that best fits its content type and length."

	directSystem  = "You are a concise summarization expert."
	mapSystem     = "You are a focused summarization assistant."
	reduceSystem  = "You are an expert at synthesizing information."
	refineSystem  = "You are a narrative summarization expert."
	leafSystem    = "You are a concise summarization assistant."
	mergeSystem   = "You are an expert at merging summaries."
	reflectSystem = "You are a Senior Editor with high standards."
	reviseSystem  = "You are an expert editor improving summaries."
)

const routerTemplate = `Analyze the document preview and metadata below and decide how it should be summarized.

DOCUMENT PREVIEW (beginning):
---
%s
---

DOCUMENT PREVIEW (ending):
---
%s
---

DOCUMENT METADATA:
- Estimated tokens: %d
- Character count: %d
- Paragraphs: %d

Answer with a JSON object holding these fields:

1. "content_type", one of:
   - "narrative": stories, biographies, fiction, chronological accounts where flow matters
   - "informational": technical docs, news, reports, factual content
   - "massive_dataset": very large documents (>50k tokens), logs, transcripts

2. "selected_strategy", one of:
   - "REFINE": best for narratives, processes sections in order and keeps the chronology
   - "MAP_REDUCE": best for informational content, summarizes sections independently
   - "HIERARCHICAL": best for massive documents, merges summaries as a tree

3. "summary_focus": concrete instructions for what the summary should concentrate on,
   e.g. "Track the protagonist's emotional journey" or "Extract key financial figures".

Respond with ONLY the JSON object.`

func routerPrompt(text string, md Metadata) string {
	runes := []rune(text)
	beginning := string(runes[:min(len(runes), PreviewChars)])

	var ending string
	if len(runes) > PreviewChars {
		ending = string(runes[len(runes)-PreviewChars:])
	}

	return fmt.Sprintf(routerTemplate, beginning, ending, md.EstimatedTokens, md.CharCount, md.ParagraphCount)
}

func directPrompt(focus, text string) string {
	return fmt.Sprintf(`Summarize the text below concisely, covering every key point.

SUMMARIZATION FOCUS:
%s

TEXT:
---
%s
---

Write a clear, well-structured summary that meets the focus.`, focus, text)
}

func mapPrompt(focus, chunk string) string {
	return fmt.Sprintf(`You are summarizing one section of a larger document. Follow this focus strictly:

SUMMARIZATION FOCUS:
%s

TEXT SECTION:
---
%s
---

Summarize this section in line with the focus. Keep the information relevant to the goals; be concise but complete.`, focus, chunk)
}

func reducePrompt(focus string, summaries []string) string {
	blocks := make([]string, len(summaries))
	for i, s := range summaries {
		blocks[i] = fmt.Sprintf("Section %d:\n%s", i+1, s)
	}

	return fmt.Sprintf(`You are combining section summaries into one final summary.

SUMMARIZATION FOCUS:
%s

SECTION SUMMARIES:
%s

Write a single coherent summary that reads naturally without repetition, keeps to the focus, preserves the critical information of every section and is clearly organized.

Synthesized summary:`, focus, strings.Join(blocks, "\n\n"))
}

func refineInitialPrompt(focus, chunk string) string {
	return fmt.Sprintf(`You are writing the first summary of a document section. It will be refined as later sections arrive.

SUMMARIZATION FOCUS:
%s

FIRST SECTION:
---
%s
---

Summarize this section thoroughly in line with the focus.`, focus, chunk)
}

func refineUpdatePrompt(focus, running, chunk string) string {
	return fmt.Sprintf(`You are updating an existing summary with the next section of the document.

SUMMARIZATION FOCUS:
%s

CURRENT RUNNING SUMMARY:
---
%s
---

NEW SECTION TO INCORPORATE:
---
%s
---

Rewrite the running summary so it includes the new section. Keep the flow coherent, avoid redundancy and preserve chronological order where it matters.`, focus, running, chunk)
}

func leafPrompt(focus, chunk string) string {
	return fmt.Sprintf(`You are summarizing a small section of a very large document. The result will be merged with many others, so keep it short.

SUMMARIZATION FOCUS:
%s

SECTION:
---
%s
---

Give a 2-3 sentence summary of the key points.`, focus, chunk)
}

func mergePrompt(focus string, summaries []string) string {
	blocks := make([]string, len(summaries))
	for i, s := range summaries {
		blocks[i] = fmt.Sprintf("Summary %d:\n%s", i+1, s)
	}

	return fmt.Sprintf(`You are merging several summaries into a higher-level one as part of summarizing a very large document.

SUMMARIZATION FOCUS:
%s

SUMMARIES TO MERGE:
%s

Combine them into one coherent summary. Drop redundancy, keep the key information from each and stay organized.`, focus, strings.Join(blocks, "\n\n"))
}

const sampleChars = 2000

func reflectPrompt(focus, draft, original string) string {
	runes := []rune(original)
	sample := string(runes[:min(len(runes), sampleChars)])
	if len(runes) > sampleChars {
		sample += "\n...[truncated]..."
	}

	return fmt.Sprintf(`You are a Senior Editor checking a summary for quality and completeness.

ORIGINAL SUMMARIZATION FOCUS:
%s

DRAFT SUMMARY:
---
%s
---

SAMPLE FROM ORIGINAL TEXT (for reference):
---
%s
---

Check whether the summary addresses the focus, is coherent and organized, has no obvious omissions or inaccuracies, and avoids repetition.

If it is satisfactory, respond with exactly: APPROVED

Otherwise list specific, actionable critique points.`, focus, draft, sample)
}

func revisePrompt(focus, draft, critique string) string {
	return fmt.Sprintf(`You are revising a summary based on editorial feedback.

SUMMARIZATION FOCUS:
%s

CURRENT DRAFT:
---
%s
---

EDITORIAL FEEDBACK:
---
%s
---

Revise the summary so it addresses every feedback point while staying aligned with the focus and reading smoothly.

Revised summary:`, focus, draft, critique)
}

// Package rag answers questions from a document collection. A Retriever
// returns the chunks most related to a query and Agent runs the
// retrieve, grade, rewrite and answer loop around it.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/germanamz/agentry/pkg/docload"
	"github.com/germanamz/agentry/pkg/summarize"
)

// Chunking defaults for Split.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Document is a retrievable chunk.
type Document struct {
	ID      int64   `json:"id,omitempty"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Retriever returns up to k documents relevant to query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Document, error)
}

// Split cuts a loaded document into overlapping chunks. Zero size or
// overlap use the defaults.
func Split(doc docload.Document, size, overlap int) []Document {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap <= 0 || overlap >= size {
		overlap = min(DefaultChunkOverlap, size/2)
	}

	source := doc.Source
	if source == "" {
		source = doc.Name
	}

	chunks := summarize.NewChunker().ChunkWith(doc.Text, size, overlap)
	docs := make([]Document, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c) == "" {
			continue
		}
		docs = append(docs, Document{Source: source, Content: c})
	}

	return docs
}

// Format renders documents the way the retrieve tool returns them to the
// model: contents separated by blank lines, each headed by its source.
func Format(docs []Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = fmt.Sprintf("File: %s\n%s", d.Source, d.Content)
	}
	return strings.Join(parts, "\n\n")
}

package rag

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

var _ Retriever = (*MemoryStore)(nil)

// MemoryStore ranks documents by term frequency weighted with inverse
// document frequency. It needs no network and suits small collections.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  []Document
	terms []map[string]int
	sizes []int
	df    map[string]int
}

// NewMemoryStore returns a store holding docs.
func NewMemoryStore(docs ...Document) *MemoryStore {
	s := &MemoryStore{df: make(map[string]int)}
	s.Add(docs...)
	return s
}

// Add indexes docs. IDs are assigned in insertion order starting at 1.
func (s *MemoryStore) Add(docs ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range docs {
		d.ID = int64(len(s.docs) + 1)

		tf := make(map[string]int)
		words := tokenize(d.Content)
		for _, w := range words {
			tf[w]++
		}
		for w := range tf {
			s.df[w]++
		}

		s.docs = append(s.docs, d)
		s.terms = append(s.terms, tf)
		s.sizes = append(s.sizes, len(words))
	}
}

// Len returns the number of indexed documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Retrieve returns the k best scoring documents. Documents sharing no term
// with the query are never returned.
func (s *MemoryStore) Retrieve(_ context.Context, query string, k int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		k = DefaultK
	}

	n := float64(len(s.docs))
	qterms := uniq(tokenize(query))

	var hits []Document
	for i, d := range s.docs {
		if s.sizes[i] == 0 {
			continue
		}

		var score float64
		for _, t := range qterms {
			if tf := s.terms[i][t]; tf > 0 {
				idf := math.Log(1 + n/float64(s.df[t]))
				score += float64(tf) / float64(s.sizes[i]) * idf
			}
		}

		if score > 0 {
			d.Score = score
			hits = append(hits, d)
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	return hits[:min(k, len(hits))], nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func uniq(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := words[:0:0]
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

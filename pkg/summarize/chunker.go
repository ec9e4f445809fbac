package summarize

import (
	"strings"
	"unicode/utf8"
)

// Strategy selects how chunked documents are summarized.
type Strategy string

// Strategies.
const (
	MapReduce    Strategy = "MAP_REDUCE"
	Refine       Strategy = "REFINE"
	Hierarchical Strategy = "HIERARCHICAL"
)

// ParseStrategy normalizes s, falling back to MapReduce for unknown values.
func ParseStrategy(s string) Strategy {
	switch st := Strategy(strings.ToUpper(strings.TrimSpace(s))); st {
	case MapReduce, Refine, Hierarchical:
		return st
	default:
		return MapReduce
	}
}

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	return s == MapReduce || s == Refine || s == Hierarchical
}

// ChunkConfig is a chunk size and overlap, both in characters.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// ChunkConfigs holds the per-strategy chunk settings.
var ChunkConfigs = map[Strategy]ChunkConfig{
	MapReduce:    {Size: 1500, Overlap: 100},
	Refine:       {Size: 4000, Overlap: 400},
	Hierarchical: {Size: 800, Overlap: 50},
}

// DefaultSeparators split by paragraph, line, sentence, word, then character.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// DefaultGroupSize is the number of summaries merged per hierarchical batch.
const DefaultGroupSize = 5

// Chunker splits text recursively on a list of separators.
type Chunker struct {
	Separators []string
}

// NewChunker returns a Chunker with DefaultSeparators.
func NewChunker() *Chunker {
	return &Chunker{Separators: DefaultSeparators}
}

// Chunk splits text with the sizes configured for strategy.
func (c *Chunker) Chunk(text string, strategy Strategy) []string {
	cfg, ok := ChunkConfigs[strategy]
	if !ok {
		cfg = ChunkConfigs[MapReduce]
	}

	return c.ChunkWith(text, cfg.Size, cfg.Overlap)
}

// ChunkWith splits text into chunks of at most size characters where
// possible, carrying up to overlap characters between neighbours. An overlap
// not smaller than size is reduced to size/4.
func (c *Chunker) ChunkWith(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" || size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size / 4
	}

	seps := c.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}

	s := splitter{size: size, overlap: overlap}

	return s.split(text, seps)
}

// GroupsForHierarchical returns the hierarchical leaf chunks in batches of
// groupSize (DefaultGroupSize when not positive).
func (c *Chunker) GroupsForHierarchical(text string, groupSize int) [][]string {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}

	return batches(c.Chunk(text, Hierarchical), groupSize)
}

func batches(items []string, n int) [][]string {
	var out [][]string
	for i := 0; i < len(items); i += n {
		out = append(out, items[i:min(i+n, len(items))])
	}
	return out
}

type splitter struct {
	size    int
	overlap int
}

func length(s string) int { return utf8.RuneCountInString(s) }

func (s splitter) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string

	for i, candidate := range seps {
		if candidate == "" {
			sep = ""
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var out, good []string

	for _, piece := range splitKeepingSeparator(text, sep) {
		if length(piece) < s.size {
			good = append(good, piece)
			continue
		}

		if len(good) > 0 {
			out = append(out, s.merge(good)...)
			good = nil
		}

		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.split(piece, rest)...)
		}
	}

	if len(good) > 0 {
		out = append(out, s.merge(good)...)
	}

	return out
}

// splitKeepingSeparator splits text on sep, attaching each separator to the
// start of the piece that follows it. An empty sep splits into characters.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))

	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

// merge packs pieces into chunks no longer than size, keeping a tail of up
// to overlap characters from the previous chunk at the start of the next.
func (s splitter) merge(pieces []string) []string {
	var docs, current []string
	total := 0

	emit := func() {
		if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
			docs = append(docs, doc)
		}
	}

	for _, p := range pieces {
		n := length(p)

		if total+n > s.size && len(current) > 0 {
			emit()
			for len(current) > 0 && (total > s.overlap || total+n > s.size) {
				total -= length(current[0])
				current = current[1:]
			}
		}

		current = append(current, p)
		total += n
	}

	emit()

	return docs
}

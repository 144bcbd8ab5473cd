// Package evidence shapes filtered retrieval results into the citation
// records returned alongside an answer.
package evidence

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/evidenced/internal/vectorstore"
)

// ExcerptLimit is the maximum excerpt length in runes, before the ellipsis.
const ExcerptLimit = 240

const ellipsis = "…"

// Evidence is one citation supporting an answer.
type Evidence struct {
	// DocID identifies the source document.
	DocID string `json:"doc_id"`

	// ChunkID identifies the chunk within the document.
	ChunkID string `json:"chunk_id"`

	// Source names where the document came from.
	Source string `json:"source"`

	// Score is the retrieval similarity, rounded to four decimal places.
	Score float64 `json:"score"`

	// Excerpt is a single-line preview of the chunk text.
	Excerpt string `json:"excerpt"`
}

// Build converts filtered chunks into evidence records, preserving order.
func Build(chunks []vectorstore.ScoredChunk) []Evidence {
	out := make([]Evidence, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, Evidence{
			DocID:   c.Chunk.DocID,
			ChunkID: c.Chunk.ChunkID,
			Source:  c.Chunk.Source,
			Score:   roundScore(c.Score),
			Excerpt: Excerpt(c.Chunk.Text),
		})
	}
	return out
}

// Excerpt collapses newlines into spaces, trims, and truncates to
// ExcerptLimit runes, appending an ellipsis when anything was cut.
func Excerpt(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(flat) <= ExcerptLimit {
		return flat
	}
	runes := []rune(flat)
	return strings.TrimRight(string(runes[:ExcerptLimit]), " ") + ellipsis
}

// roundScore rounds to four decimal places so JSON payloads stay stable
// across floating point noise.
func roundScore(s float64) float64 {
	return math.Round(s*10000) / 10000
}

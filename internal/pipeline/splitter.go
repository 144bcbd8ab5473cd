package pipeline

import (
	"strings"
	"unicode/utf8"
)

// defaultChunkSize is the target chunk size in runes for ingest splitting.
const defaultChunkSize = 900

// splitDocument breaks text into chunks of at most maxRunes, cutting only at
// line boundaries so a chunk never starts mid-sentence. A single line longer
// than maxRunes becomes its own oversized chunk rather than being cut.
func splitDocument(text string, maxRunes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxRunes <= 0 {
		maxRunes = defaultChunkSize
	}

	var out []string
	var buf []string
	size := 0
	flush := func() {
		if len(buf) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(buf, "\n"))
		if chunk != "" {
			out = append(out, chunk)
		}
		buf, size = nil, 0
	}

	for _, line := range strings.Split(text, "\n") {
		lineLen := utf8.RuneCountInString(line) + 1
		if size+lineLen > maxRunes && len(buf) > 0 {
			flush()
		}
		buf = append(buf, line)
		size += lineLen
	}
	flush()
	return out
}

package synthesizer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// snippetLimit caps the combined excerpt length in the draft answer, in runes.
const snippetLimit = 600

// Draft is the built-in extractive synthesizer. It quotes the top evidence
// back at the caller instead of generating text, so it is deterministic,
// offline, and cannot be steered by instructions hidden in the context.
type Draft struct{}

// NewDraft creates a Draft synthesizer.
func NewDraft() *Draft {
	return &Draft{}
}

// Synthesize composes a conservative answer from the first two snippets.
func (d *Draft) Synthesize(_ context.Context, question string, snippets []string) (string, error) {
	if len(snippets) == 0 {
		return InsufficientEvidence, nil
	}

	take := snippets
	if len(take) > 2 {
		take = take[:2]
	}
	parts := make([]string, 0, len(take))
	for _, s := range take {
		parts = append(parts, strings.Join(strings.Fields(s), " "))
	}
	joined := strings.Join(parts, " ")
	if utf8.RuneCountInString(joined) > snippetLimit {
		joined = string([]rune(joined)[:snippetLimit]) + "…"
	}

	return fmt.Sprintf(
		"Answer (evidence-based, tenant-scoped):\nQuestion: %s\n\nRelevant evidence excerpt(s):\n- %s",
		question, joined,
	), nil
}

// Compile-time check that Draft implements Synthesizer.
var _ Synthesizer = (*Draft)(nil)

// Package synthesizer turns a question and its evidence context into an
// answer. Synthesis always treats retrieved text as data, never as
// instructions; the guardrails around it assume that contract.
package synthesizer

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the synthesis backend could not produce an answer.
var ErrUnavailable = errors.New("synthesizer unavailable")

// InsufficientEvidence is the answer returned when no usable context
// survived filtering. It goes through redaction like any other answer.
const InsufficientEvidence = "I don't have enough tenant-scoped evidence to answer safely. " +
	"Please ingest relevant documents for this tenant."

// Synthesizer produces an answer from a question and evidence snippets.
type Synthesizer interface {
	// Synthesize returns the answer text. snippets hold the surviving chunk
	// texts in retrieval order; they may be empty.
	Synthesize(ctx context.Context, question string, snippets []string) (string, error)
}

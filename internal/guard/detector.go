package guard

import (
	"context"
	"strings"
)

// LexicalDetector is the default semantic anomaly layer. It flags prompts
// that combine an encoding or translation request with a reference to the
// system prompt, a shape heuristic regexes alone miss because each half is
// benign on its own.
//
// A learned classifier can replace it behind the Detector interface without
// touching the gate.
type LexicalDetector struct{}

// NewLexicalDetector creates a LexicalDetector.
func NewLexicalDetector() *LexicalDetector {
	return &LexicalDetector{}
}

var encodingTerms = []string{"base64", "hex", "translate to"}

// Detect reports whether the prompt pairs an encoding term with a system
// prompt reference.
func (d *LexicalDetector) Detect(_ context.Context, prompt string) (bool, error) {
	lower := strings.ToLower(prompt)
	if !strings.Contains(lower, "system prompt") {
		return false, nil
	}
	for _, term := range encodingTerms {
		if strings.Contains(lower, term) {
			return true, nil
		}
	}
	return false, nil
}

// Compile-time check that LexicalDetector implements Detector.
var _ Detector = (*LexicalDetector)(nil)

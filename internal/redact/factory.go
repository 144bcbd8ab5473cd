package redact

import "fmt"

// NewDetector creates a Detector by kind. "regex" is the engine that ships;
// "nlp" is a configurable seam for a model-backed detector and falls back to
// the regex engine until one exists. Callers selecting "nlp" should warn at
// startup that the fallback is in effect.
func NewDetector(kind string, cfg *Config) (Detector, error) {
	switch kind {
	case "regex", "", "nlp":
		return New(cfg)
	default:
		return nil, fmt.Errorf("unknown redaction detector %q", kind)
	}
}

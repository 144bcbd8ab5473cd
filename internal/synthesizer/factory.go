package synthesizer

import (
	"fmt"

	"github.com/fyrsmithlabs/evidenced/internal/config"
)

// New creates a Synthesizer from config.
func New(cfg config.SynthesizerConfig) (Synthesizer, error) {
	switch cfg.Provider {
	case "draft", "":
		return NewDraft(), nil
	case "openai":
		return NewLLM(LLMConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown synthesizer provider %q", cfg.Provider)
	}
}

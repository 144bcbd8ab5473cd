package vectorstore

import (
	"fmt"

	"github.com/fyrsmithlabs/evidenced/internal/logging"
)

// FactoryConfig selects and configures a Store implementation.
type FactoryConfig struct {
	// Backend is "memory" or "chromem".
	Backend string

	// Chromem configures the chromem backend (ignored for memory).
	Chromem ChromemConfig
}

// NewStore creates a Store from config. Any backend added here must honor
// the tenant isolation and ordering contracts documented on Store.
func NewStore(cfg FactoryConfig, embedder Embedder, logger *logging.Logger) (Store, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryStore(embedder, logger)
	case "chromem":
		return NewChromemStore(cfg.Chromem, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
}

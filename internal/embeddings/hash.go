// Package embeddings provides embedding generation for similarity scoring.
//
// The default provider derives a fixed-size vector from a SHA-256 digest of
// the input bytes. It is a pure function of the text: no model downloads, no
// network calls, no randomness. That determinism lets tests assert exact
// retrieval ordering. It is NOT a semantic model and must not ship to
// production deployments that need real recall; any model satisfying
// vectorstore.Embedder can replace it per deployment.
package embeddings

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/fyrsmithlabs/evidenced/internal/vectorstore"
)

// DefaultDimension is the hash provider's vector length.
const DefaultDimension = 64

// Provider is the interface for embedding providers.
type Provider interface {
	vectorstore.Embedder
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// HashProvider is the deterministic hash-derived embedder.
//
// Each component is digest[i mod 32] / 255, so all components lie in [0,1]
// and every cosine score against another hash vector lies in [0,1].
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a HashProvider with the given dimension.
// A non-positive dimension falls back to DefaultDimension.
func NewHashProvider(dimension int) *HashProvider {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &HashProvider{dimension: dimension}
}

// EmbedQuery generates an embedding for a single text.
func (p *HashProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	digest := sha256.Sum256([]byte(text))
	vec := make([]float32, p.dimension)
	for i := range vec {
		vec[i] = float32(digest[i%len(digest)]) / 255.0
	}
	return vec, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *HashProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := p.EmbedQuery(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embedding document %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimension returns the vector length.
func (p *HashProvider) Dimension() int {
	return p.dimension
}

// Close releases resources. HashProvider holds none.
func (p *HashProvider) Close() error {
	return nil
}

// Compile-time check that HashProvider implements Provider.
var _ Provider = (*HashProvider)(nil)

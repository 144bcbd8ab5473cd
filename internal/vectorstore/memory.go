package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/evidenced/internal/logging"
)

// MemoryStore is a tenant-partitioned in-memory Store for local dev and
// tests. Partitions never contend with each other; a single RWMutex over
// the partition map is sufficient at this scale.
type MemoryStore struct {
	embedder Embedder
	logger   *logging.Logger

	mu       sync.RWMutex
	byTenant map[string][]memoryEntry
}

// memoryEntry caches the chunk's embedding at upsert time so queries only
// embed the query text.
type memoryEntry struct {
	chunk  Chunk
	vector []float32
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(embedder Embedder, logger *logging.Logger) (*MemoryStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MemoryStore{
		embedder: embedder,
		logger:   logger,
		byTenant: make(map[string][]memoryEntry),
	}, nil
}

// Upsert appends a chunk to its tenant's partition.
func (s *MemoryStore) Upsert(ctx context.Context, chunk Chunk) error {
	if chunk.TenantID == "" {
		return ErrInvalidTenant
	}
	if chunk.Text == "" {
		return ErrEmptyChunk
	}

	vecs, err := s.embedder.EmbedDocuments(ctx, []string{chunk.Text})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	s.mu.Lock()
	s.byTenant[chunk.TenantID] = append(s.byTenant[chunk.TenantID], memoryEntry{
		chunk:  chunk,
		vector: vecs[0],
	})
	s.mu.Unlock()

	s.logger.Debug(ctx, "upserted chunk",
		zap.String("tenant_id", chunk.TenantID),
		zap.String("doc_id", chunk.DocID),
		zap.String("chunk_id", chunk.ChunkID),
	)
	return nil
}

// Query returns the tenant's top-K chunks by cosine similarity.
func (s *MemoryStore) Query(ctx context.Context, tenantID, text string, topK int) ([]ScoredChunk, error) {
	if tenantID == "" {
		return nil, ErrInvalidTenant
	}

	qv, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	s.mu.RLock()
	entries := s.byTenant[tenantID]
	scored := make([]ScoredChunk, 0, len(entries))
	for _, e := range entries {
		scored = append(scored, ScoredChunk{
			Chunk: e.chunk,
			Score: cosine(qv, e.vector),
		})
	}
	s.mu.RUnlock()

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	k := topK
	if k < 1 {
		k = 1
	}
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Close releases store resources. MemoryStore holds none.
func (s *MemoryStore) Close() error {
	return nil
}

// cosine computes cosine similarity between two equal-length vectors.
// A zero-norm vector scores 0.0 against anything; never divides by zero.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0.0 || nb == 0.0 {
		return 0.0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

package vectorstore

import (
	"context"
	"fmt"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/evidenced/internal/logging"
	"github.com/fyrsmithlabs/evidenced/internal/sanitize"
)

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("evidenced.vectorstore.chromem")

// ChromemConfig holds configuration for the chromem-go embedded backend.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty means in-memory.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// CollectionPrefix namespaces per-tenant collections.
	// Default: "evidence"
	CollectionPrefix string

	// VectorSize is the expected embedding dimension.
	// Must match the embedder's output dimension. Default: 64.
	VectorSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.CollectionPrefix == "" {
		c.CollectionPrefix = "evidence"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 64
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements Store using chromem-go.
//
// Isolation is structural: each tenant gets its own collection, named
// {prefix}_{sanitized tenant ID}. A query can only ever touch the
// requested tenant's collection, and results are additionally checked
// against the tenant metadata written at upsert time.
//
// Ordering note: chromem returns results by descending similarity but does
// not guarantee the insertion-order tie-break that MemoryStore provides.
// Exact-tie ordering is best-effort on this backend.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder
	config   ChromemConfig
	logger   *logging.Logger
}

// NewChromemStore creates a ChromemStore with the given configuration.
func NewChromemStore(config ChromemConfig, embedder Embedder, logger *logging.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	var db *chromem.DB
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(config.Path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	store := &ChromemStore{
		db:       db,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}

	logger.Info(context.Background(), "ChromemStore initialized",
		zap.String("path", config.Path),
		zap.Bool("compress", config.Compress),
		zap.Int("vector_size", config.VectorSize),
		zap.String("collection_prefix", config.CollectionPrefix),
	)

	return store, nil
}

// embeddingFunc adapts the Embedder interface to chromem.EmbeddingFunc.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// collectionName derives the tenant's collection name.
func (s *ChromemStore) collectionName(tenantID string) string {
	return sanitize.TenantCollection(s.config.CollectionPrefix, tenantID)
}

// Upsert appends a chunk to its tenant's collection.
func (s *ChromemStore) Upsert(ctx context.Context, chunk Chunk) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Upsert")
	defer span.End()

	if chunk.TenantID == "" {
		return ErrInvalidTenant
	}
	if chunk.Text == "" {
		return ErrEmptyChunk
	}

	name := s.collectionName(chunk.TenantID)
	span.SetAttributes(attribute.String("collection", name))

	collection, err := s.db.GetOrCreateCollection(name, nil, s.embeddingFunc())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: getting collection: %v", ErrRetrievalUnavailable, err)
	}

	vecs, err := s.embedder.EmbedDocuments(ctx, []string{chunk.Text})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	doc := chromem.Document{
		ID:        chunk.DocID + ":" + chunk.ChunkID,
		Content:   chunk.Text,
		Embedding: vecs[0],
		Metadata: map[string]string{
			"tenant_id":  chunk.TenantID,
			"source":     chunk.Source,
			"doc_id":     chunk.DocID,
			"chunk_id":   chunk.ChunkID,
			"created_at": chunk.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}

	if err := collection.AddDocument(ctx, doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: adding document: %v", ErrRetrievalUnavailable, err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug(ctx, "upserted chunk to chromem",
		zap.String("collection", name),
		zap.String("doc_id", chunk.DocID),
		zap.String("chunk_id", chunk.ChunkID),
	)
	return nil
}

// Query returns the tenant's top-K chunks by cosine similarity.
func (s *ChromemStore) Query(ctx context.Context, tenantID, text string, topK int) ([]ScoredChunk, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()

	if tenantID == "" {
		return nil, ErrInvalidTenant
	}

	name := s.collectionName(tenantID)
	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("top_k", topK),
	)

	collection := s.db.GetCollection(name, s.embeddingFunc())
	if collection == nil {
		// Tenant has never ingested anything: empty result, not an error.
		return []ScoredChunk{}, nil
	}

	k := topK
	if k < 1 {
		k = 1
	}
	// chromem requires nResults <= doc count.
	docCount := collection.Count()
	if docCount == 0 {
		return []ScoredChunk{}, nil
	}
	if k > docCount {
		k = docCount
	}

	results, err := collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: querying collection: %v", ErrRetrievalUnavailable, err)
	}

	scored := make([]ScoredChunk, 0, len(results))
	for _, r := range results {
		// Structural isolation already scopes the collection; the metadata
		// check guards against misfiled documents. On any mismatch, drop.
		if r.Metadata["tenant_id"] != tenantID {
			s.logger.Warn(ctx, "dropping result with mismatched tenant metadata",
				zap.String("collection", name),
				zap.String("id", r.ID),
			)
			continue
		}
		createdAt, _ := time.Parse(time.RFC3339Nano, r.Metadata["created_at"])
		scored = append(scored, ScoredChunk{
			Chunk: Chunk{
				TenantID:  tenantID,
				Source:    r.Metadata["source"],
				DocID:     r.Metadata["doc_id"],
				ChunkID:   r.Metadata["chunk_id"],
				Text:      r.Content,
				CreatedAt: createdAt,
			},
			Score: float64(r.Similarity),
		})
	}

	span.SetAttributes(attribute.Int("results_count", len(scored)))
	span.SetStatus(codes.Ok, "success")
	return scored, nil
}

// Close releases store resources.
func (s *ChromemStore) Close() error {
	return nil
}

// Compile-time check that ChromemStore implements Store.
var _ Store = (*ChromemStore)(nil)

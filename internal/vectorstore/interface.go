// Package vectorstore defines the tenant-partitioned vector index and its
// implementations.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidTenant indicates a missing or malformed tenant identifier.
	ErrInvalidTenant = errors.New("invalid tenant identifier")

	// ErrEmptyChunk indicates a chunk with no text content.
	ErrEmptyChunk = errors.New("chunk text cannot be empty")

	// ErrRetrievalUnavailable indicates the backing store failed. Callers
	// must treat this as a dependency failure, distinct from "no evidence
	// found" - never fabricate an answer when retrieval itself failed.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// Embedder generates vector embeddings from text.
//
// Implementations must be deterministic per deployment: the same text maps
// to the same vector across calls and processes, and all vectors share one
// fixed dimensionality. The hash-derived MVP embedder satisfies this; any
// real model may replace it under the same contract.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	// Returns one embedding per input text, in order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the capability interface for the tenant-partitioned vector index.
//
// Tenant isolation contract: a chunk's tenant ID is the sole partition key
// for retrieval. No Query may return a chunk whose tenant ID differs from
// the requested tenant, under any failure mode. On partial backend failure
// implementations return an error (or empty results), never a guess.
//
// Ordering contract: Query results are sorted descending by score; ties
// break by original insertion order (stable sort). At most max(1, topK)
// results are returned. A tenant with zero chunks yields an empty slice,
// never an error.
//
// Implementations must be safe for concurrent Upsert and Query across
// goroutines.
type Store interface {
	// Upsert appends a chunk to its tenant's partition. There is no
	// dedup: re-ingesting identical text creates a new entry. Callers
	// wanting idempotence must supply stable doc/chunk identifiers.
	Upsert(ctx context.Context, chunk Chunk) error

	// Query embeds text and returns the tenant's top-K chunks by cosine
	// similarity against the query vector.
	Query(ctx context.Context, tenantID, text string, topK int) ([]ScoredChunk, error)

	// Close releases store resources.
	Close() error
}

package vectorstore

import "time"

// Chunk is a unit of ingested text with provenance metadata, the unit of
// retrieval. Chunks are immutable once created and owned by the store after
// Upsert. ChunkID is unique within a DocID; TenantID is the sole partition
// key.
type Chunk struct {
	// TenantID is the isolation boundary this chunk belongs to.
	TenantID string `json:"tenant_id"`

	// Source is the provenance label, checked against the allowlist.
	Source string `json:"source"`

	// DocID identifies the document this chunk was split from.
	DocID string `json:"doc_id"`

	// ChunkID identifies this chunk within the document.
	ChunkID string `json:"chunk_id"`

	// Text is the chunk content.
	Text string `json:"text"`

	// CreatedAt records ingestion time.
	CreatedAt time.Time `json:"created_at"`
}

// ScoredChunk pairs a chunk with its similarity score for one query.
// Transient, produced per query. Cosine scores lie in [-1,1]; with the
// non-negative hash embedder they lie in [0,1].
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

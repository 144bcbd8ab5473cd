package http

import "github.com/fyrsmithlabs/evidenced/internal/evidence"

// ChatRequest is the request body for POST /api/v1/chat.
type ChatRequest struct {
	TenantID string `json:"tenant_id"`
	Question string `json:"question"`
}

// ChatResponse is the response body for POST /api/v1/chat.
type ChatResponse struct {
	TenantID string              `json:"tenant_id"`
	Answer   string              `json:"answer"`
	Evidence []evidence.Evidence `json:"evidence"`
}

// IngestRequest is the request body for POST /api/v1/ingest.
type IngestRequest struct {
	TenantID string `json:"tenant_id"`
	Source   string `json:"source"`
	DocID    string `json:"doc_id,omitempty"`
	Text     string `json:"text"`
}

// IngestResponse is the response body for POST /api/v1/ingest.
type IngestResponse struct {
	Status string `json:"status"`
	DocID  string `json:"doc_id"`
	Chunks int    `json:"chunks"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

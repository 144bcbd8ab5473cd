// Package pipeline orchestrates the guarded question-answering flow:
// gate the prompt, retrieve tenant-scoped chunks, filter them, build
// evidence, synthesize, and redact. Redaction is unconditional; every
// answer passes through it, including fallbacks.
package pipeline

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/evidenced/internal/evidence"
	"github.com/fyrsmithlabs/evidenced/internal/guard"
	"github.com/fyrsmithlabs/evidenced/internal/logging"
	"github.com/fyrsmithlabs/evidenced/internal/policy"
	"github.com/fyrsmithlabs/evidenced/internal/redact"
	"github.com/fyrsmithlabs/evidenced/internal/synthesizer"
	"github.com/fyrsmithlabs/evidenced/internal/vectorstore"
)

var tracer = otel.Tracer("evidenced.pipeline")

// Config holds pipeline knobs.
type Config struct {
	// TopK is the number of chunks retrieved per question.
	TopK int

	// MaxPromptChars is the prompt size gate in runes, checked before the
	// guard runs. Larger than the guard's own limit so the cheap structural
	// rejection fires first on pathological inputs.
	MaxPromptChars int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.MaxPromptChars == 0 {
		c.MaxPromptChars = 8000
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.MaxPromptChars <= 0 {
		return fmt.Errorf("max_prompt_chars must be positive, got %d", c.MaxPromptChars)
	}
	return nil
}

// ChatResult is the outcome of one answered question.
type ChatResult struct {
	TenantID string              `json:"tenant_id"`
	Answer   string              `json:"answer"`
	Evidence []evidence.Evidence `json:"evidence"`
}

// IngestRequest is one document to ingest.
type IngestRequest struct {
	TenantID string
	Source   string
	DocID    string
	Text     string
}

// IngestResult reports what ingest stored.
type IngestResult struct {
	DocID  string `json:"doc_id"`
	Chunks int    `json:"chunks"`
}

// Pipeline wires the guardrail stages around retrieval and synthesis.
type Pipeline struct {
	config   Config
	store    vectorstore.Store
	guard    *guard.Guard
	filter   *policy.Filter
	redactor redact.Detector
	synth    synthesizer.Synthesizer
	metrics  *Metrics
	logger   *logging.Logger
}

// New creates a Pipeline. All dependencies are required except metrics and
// logger.
func New(
	cfg Config,
	store vectorstore.Store,
	g *guard.Guard,
	filter *policy.Filter,
	redactor redact.Detector,
	synth synthesizer.Synthesizer,
	metrics *Metrics,
	logger *logging.Logger,
) (*Pipeline, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if g == nil {
		return nil, fmt.Errorf("guard is required")
	}
	if filter == nil {
		return nil, fmt.Errorf("filter is required")
	}
	if redactor == nil {
		return nil, fmt.Errorf("redactor is required")
	}
	if synth == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		config:   cfg,
		store:    store,
		guard:    g,
		filter:   filter,
		redactor: redactor,
		synth:    synth,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// Answer runs the full guarded flow for one question. A ValidationError
// means the prompt was rejected before retrieval; other errors are
// dependency failures.
func (p *Pipeline) Answer(ctx context.Context, tenantID, question string) (*ChatResult, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.Answer")
	defer span.End()
	span.SetAttributes(attribute.String("tenant_id", tenantID))
	ctx = logging.WithTenantID(ctx, tenantID)

	// Gate. Cheap size check first, then the layered guard. The question is
	// rejected whole; nothing downstream sees it.
	if utf8.RuneCountInString(question) > p.config.MaxPromptChars {
		p.metrics.promptsBlocked.WithLabelValues(CodePromptTooLarge).Inc()
		return nil, newValidationError(CodePromptTooLarge)
	}
	if v := p.guard.Check(ctx, question); !v.OK {
		p.metrics.promptsBlocked.WithLabelValues(v.Reason).Inc()
		return nil, newValidationError(injectionCodePrefix + v.Reason)
	}

	// Retrieve, tenant-bound.
	hits, err := p.store.Query(ctx, tenantID, question, p.config.TopK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("retrieving chunks: %w", err)
	}

	// Filter retrieved content.
	kept, drops := p.filter.Apply(ctx, hits)
	p.metrics.chunksDropped.WithLabelValues("source").Add(float64(drops.BySource))
	p.metrics.chunksDropped.WithLabelValues("content").Add(float64(drops.ByContent))

	ev := evidence.Build(kept)
	snippets := make([]string, 0, len(kept))
	for _, c := range kept {
		snippets = append(snippets, c.Chunk.Text)
	}

	// Synthesize. The synthesizer returns the insufficient-evidence fallback
	// itself when snippets are empty.
	answer, err := p.synth.Synthesize(ctx, question, snippets)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.answers.WithLabelValues("synthesis_error").Inc()
		return nil, fmt.Errorf("synthesizing answer: %w", err)
	}

	// Redact, unconditionally. A failing redactor blocks the answer rather
	// than letting unscrubbed text out.
	res, err := p.redactor.Redact(answer)
	if err != nil {
		p.logger.Error(ctx, "redaction failed, blocking answer", zap.Error(err))
		p.metrics.redactionFailures.Inc()
		answer = redact.BlockedContent
	} else {
		answer = res.Redacted
		for rule, n := range res.ByRule {
			p.metrics.redactionFindings.WithLabelValues(rule).Add(float64(n))
		}
	}

	outcome := "answered"
	if len(kept) == 0 {
		outcome = "insufficient_evidence"
	}
	p.metrics.answers.WithLabelValues(outcome).Inc()

	span.SetAttributes(
		attribute.Int("evidence_count", len(ev)),
		attribute.Int("chunks_dropped", drops.Total()),
	)
	span.SetStatus(codes.Ok, "success")
	p.logger.Info(ctx, "answered question",
		zap.Int("evidence_count", len(ev)),
		zap.Int("chunks_dropped", drops.Total()),
	)

	return &ChatResult{TenantID: tenantID, Answer: answer, Evidence: ev}, nil
}

// Ingest splits a document into chunks and stores them under the tenant.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.Ingest")
	defer span.End()
	span.SetAttributes(attribute.String("tenant_id", req.TenantID))
	ctx = logging.WithTenantID(ctx, req.TenantID)

	chunks := splitDocument(req.Text, defaultChunkSize)
	if len(chunks) == 0 {
		return nil, newValidationError(CodeEmptyDocument)
	}

	docID := req.DocID
	if docID == "" {
		sum := sha1.Sum([]byte(req.Text))
		docID = hex.EncodeToString(sum[:])[:12]
	}

	now := time.Now().UTC()
	for i, text := range chunks {
		chunkID := fmt.Sprintf("%s-%d", shortUUID(), i)
		err := p.store.Upsert(ctx, vectorstore.Chunk{
			TenantID:  req.TenantID,
			Source:    req.Source,
			DocID:     docID,
			ChunkID:   chunkID,
			Text:      text,
			CreatedAt: now,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("storing chunk %d: %w", i, err)
		}
	}

	p.metrics.documentsIngested.Inc()
	p.metrics.chunksIngested.Add(float64(len(chunks)))
	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	span.SetStatus(codes.Ok, "success")
	p.logger.Info(ctx, "ingested document",
		zap.String("doc_id", docID),
		zap.Int("chunks", len(chunks)),
	)

	return &IngestResult{DocID: docID, Chunks: len(chunks)}, nil
}

// shortUUID returns the first 8 hex characters of a random UUID.
func shortUUID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])[:8]
}

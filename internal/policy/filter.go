package policy

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/evidenced/internal/guard"
	"github.com/fyrsmithlabs/evidenced/internal/logging"
	"github.com/fyrsmithlabs/evidenced/internal/vectorstore"
)

var tracer = otel.Tracer("evidenced.policy")

// ContentScreen judges whether retrieved text carries an injection payload.
// *guard.Guard satisfies it via CheckContent.
type ContentScreen interface {
	CheckContent(ctx context.Context, text string) guard.Verdict
}

// DropStats counts chunks removed by one Apply call, split by cause.
type DropStats struct {
	// BySource is the number of chunks from sources outside the allowlist.
	BySource int

	// ByContent is the number of chunks whose text tripped the screen.
	ByContent int
}

// Total returns the combined drop count.
func (s DropStats) Total() int {
	return s.BySource + s.ByContent
}

// Filter removes untrusted chunks from retrieval results. Chunks are judged
// independently: allowlist first, then the content screen. Survivors keep
// their relative order. Dropped chunks are counted and logged by chunk ID,
// never surfaced to the caller's response.
type Filter struct {
	allowlist *Allowlist
	screen    ContentScreen
	logger    *logging.Logger
}

// NewFilter creates a Filter. A nil allowlist behaves as open.
func NewFilter(allowlist *Allowlist, screen ContentScreen, logger *logging.Logger) *Filter {
	if allowlist == nil {
		allowlist = NewAllowlist(nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Filter{allowlist: allowlist, screen: screen, logger: logger}
}

// Apply returns the chunks that pass policy, preserving input order.
func (f *Filter) Apply(ctx context.Context, chunks []vectorstore.ScoredChunk) ([]vectorstore.ScoredChunk, DropStats) {
	ctx, span := tracer.Start(ctx, "Filter.Apply")
	defer span.End()

	kept := make([]vectorstore.ScoredChunk, 0, len(chunks))
	var stats DropStats
	for _, c := range chunks {
		if !f.allowlist.Allows(c.Chunk.Source) {
			stats.BySource++
			f.logger.Debug(ctx, "dropped chunk from disallowed source",
				zap.String("chunk_id", c.Chunk.ChunkID),
				zap.String("source", c.Chunk.Source),
			)
			continue
		}
		if f.screen != nil {
			if v := f.screen.CheckContent(ctx, c.Chunk.Text); !v.OK {
				stats.ByContent++
				f.logger.Info(ctx, "dropped chunk with suspicious content",
					zap.String("chunk_id", c.Chunk.ChunkID),
					zap.String("reason", v.Reason),
				)
				continue
			}
		}
		kept = append(kept, c)
	}

	span.SetAttributes(
		attribute.Int("kept", len(kept)),
		attribute.Int("dropped_by_source", stats.BySource),
		attribute.Int("dropped_by_content", stats.ByContent),
	)
	return kept, stats
}

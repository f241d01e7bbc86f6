package port

import (
	"context"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
)

// Embedder converts text into fixed-dimension float vectors. All vectors for
// a deployment share one dimension; a mismatch between stored and query
// vectors is a configuration error, not a runtime-recoverable one.
type Embedder interface {
	// EmbedTexts generates one vector per input text, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates a vector for a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the fixed vector dimension.
	Dimension() int

	// ModelName returns the identifier of the embedding model.
	ModelName() string
}

// Summarizer produces short natural-language summaries per chunk. Batch
// results may be shorter than the input: empty or failed summaries are
// filtered out rather than propagated as errors.
type Summarizer interface {
	// Summarize returns a summary for one chunk, or nil when generation
	// produced nothing usable.
	Summarize(ctx context.Context, chunk domain.Chunk) (*domain.Summary, error)

	// BatchSummarize summarizes chunks with bounded concurrency. Callers must
	// tolerate len(result) <= len(chunks).
	BatchSummarize(ctx context.Context, chunks []domain.Chunk) ([]domain.Summary, error)

	// ModelName returns the identifier of the summarization model.
	ModelName() string
}

// Parser recovers top-level block spans from source text. A nil ParsedFile
// with a nil error means the content is not structurally parseable; chunking
// degrades to lower-fidelity strategies.
type Parser interface {
	Parse(filePath, content string) (*domain.ParsedFile, error)
}

package port

import (
	"context"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
)

// SearchFilter narrows a similarity search.
type SearchFilter struct {
	Repository     string   // empty = all repositories
	FileExtensions []string // empty = all extensions
	EmbeddingTypes []domain.EmbeddingType
}

// VectorStore persists (repository, file, chunk) embedding tuples and serves
// cosine-similarity search. Upsert for a single file is delete-old-insert-new;
// concurrent upserts for the same (repository, file_path) must be serialized
// by the caller.
type VectorStore interface {
	// UpsertFileEmbeddings atomically replaces all prior embeddings (code and
	// summary) for the upsert's (repository, file_path) pair, creating the
	// repository row if it does not exist.
	UpsertFileEmbeddings(ctx context.Context, up domain.FileUpsert) error

	// SearchSimilar returns hits ordered descending by similarity, truncated
	// to topK and filtered to similarity >= threshold.
	SearchSimilar(ctx context.Context, queryVector []float32, topK int, threshold float64, filter SearchFilter) ([]domain.SearchHit, error)

	// DeleteRepositoryEmbeddings removes every embedding and the repository row.
	DeleteRepositoryEmbeddings(ctx context.Context, repositoryName string) error

	// DeleteFileEmbeddings removes all embeddings for one file.
	DeleteFileEmbeddings(ctx context.Context, repositoryName, filePath string) error

	// GetRepositoryStats aggregates counts for one repository, or globally
	// when repositoryName is empty.
	GetRepositoryStats(ctx context.Context, repositoryName string) (*domain.RepositoryStats, error)

	// ListRepositories returns all known repositories.
	ListRepositories(ctx context.Context) ([]domain.Repository, error)
}

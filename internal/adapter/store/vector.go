package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/port"
)

// VectorStore handles pgvector-specific operations for file embeddings. It
// implements port.VectorStore on top of the relational store.
type VectorStore struct {
	store     *PostgresStore
	dimension int
}

// NewVectorStore creates a vector store backed by the given Postgres store.
func NewVectorStore(store *PostgresStore, dimension int) *VectorStore {
	return &VectorStore{store: store, dimension: dimension}
}

const insertEmbeddingQuery = `
	INSERT INTO file_embeddings (
		id, repository_id, file_path, file_name, file_extension, file_size,
		file_hash, chunk_index, total_chunks, content, embedding_vector,
		embedding_model, embedding_type, language, tokens_count, chunk_strategy,
		summary_text, summary_confidence, summary_type, summarization_model,
		processing_metadata
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::vector,
	          $12, $13, $14, $15, $16, $17, $18, $19, $20, $21::jsonb)`

// UpsertFileEmbeddings replaces all prior embeddings (code and summary) for
// the upsert's (repository, file_path) pair in one transaction, creating the
// repository row if it does not exist.
func (v *VectorStore) UpsertFileEmbeddings(ctx context.Context, up domain.FileUpsert) error {
	rows, err := buildRows(up)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if len(row.Vector) != v.dimension {
			return fmt.Errorf("%w: got %d, store expects %d", port.ErrDimensionMismatch, len(row.Vector), v.dimension)
		}
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	repoID, err := upsertRepositoryTx(ctx, tx, up.RepositoryName, up.RepositoryURL, up.RepositoryDesc)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM file_embeddings WHERE repository_id = $1 AND file_path = $2`,
		repoID, up.FilePath,
	); err != nil {
		return fmt.Errorf("delete prior embeddings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertEmbeddingQuery)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		var summaryText, summaryType, summaryModel, summaryMeta sql.NullString
		var summaryConfidence sql.NullFloat64
		if row.Summary != nil {
			summaryText = sql.NullString{String: row.Summary.Text, Valid: true}
			summaryType = sql.NullString{String: row.Summary.Type, Valid: true}
			summaryModel = sql.NullString{String: row.Summary.Model, Valid: true}
			summaryConfidence = sql.NullFloat64{Float64: row.Summary.Confidence, Valid: true}
			if row.Summary.Metadata != "" {
				summaryMeta = sql.NullString{String: row.Summary.Metadata, Valid: true}
			}
		}

		if _, err := stmt.ExecContext(ctx,
			row.ID, repoID, row.FilePath, row.FileName, row.FileExtension, row.FileSize,
			row.FileHash, row.ChunkIndex, row.TotalChunks, row.Content, vectorToString(row.Vector),
			row.Model, string(row.Type), row.Language, row.TokenCount, string(row.ChunkStrategy),
			summaryText, summaryConfidence, summaryType, summaryModel, summaryMeta,
		); err != nil {
			return fmt.Errorf("insert embedding: %w", err)
		}
	}

	return tx.Commit()
}

// SearchSimilar performs a cosine similarity search. The threshold filter is
// applied in the distance domain (distance <= 1 - threshold), which is
// equivalent to similarity >= threshold.
func (v *VectorStore) SearchSimilar(ctx context.Context, queryVector []float32, topK int, threshold float64, filter port.SearchFilter) ([]domain.SearchHit, error) {
	if len(queryVector) != v.dimension {
		return nil, fmt.Errorf("%w: query has %d, store expects %d", port.ErrDimensionMismatch, len(queryVector), v.dimension)
	}
	if topK <= 0 {
		topK = 10
	}

	vectorStr := vectorToString(queryVector)
	args := []interface{}{vectorStr, 1 - threshold}
	conds := []string{`e.embedding_vector <=> $1::vector <= $2`}
	argIdx := 3

	if filter.Repository != "" {
		conds = append(conds, fmt.Sprintf("r.name = $%d", argIdx))
		args = append(args, filter.Repository)
		argIdx++
	}
	if len(filter.FileExtensions) > 0 {
		conds = append(conds, fmt.Sprintf("e.file_extension = ANY($%d)", argIdx))
		args = append(args, pq.Array(filter.FileExtensions))
		argIdx++
	}
	if len(filter.EmbeddingTypes) > 0 {
		types := make([]string, len(filter.EmbeddingTypes))
		for i, t := range filter.EmbeddingTypes {
			types[i] = string(t)
		}
		conds = append(conds, fmt.Sprintf("e.embedding_type = ANY($%d)", argIdx))
		args = append(args, pq.Array(types))
		argIdx++
	}

	query := fmt.Sprintf(`
		SELECT r.name, e.file_path, e.file_name, e.file_extension, e.chunk_index,
		       e.total_chunks, e.content, e.embedding_model, e.embedding_type,
		       e.language, e.tokens_count, e.chunk_strategy,
		       COALESCE(e.summary_text, ''), COALESCE(e.summary_confidence, 0),
		       COALESCE(e.summary_type, ''), COALESCE(e.summarization_model, ''),
		       e.created_at,
		       1 - (e.embedding_vector <=> $1::vector) AS similarity
		FROM file_embeddings e
		JOIN repositories r ON r.id = e.repository_id
		WHERE %s
		ORDER BY e.embedding_vector <=> $1::vector
		LIMIT $%d`, strings.Join(conds, " AND "), argIdx)
	args = append(args, topK)

	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		var hit domain.SearchHit
		var summaryText, summaryType, summaryModel string
		var summaryConfidence float64
		e := &hit.Embedding
		if err := rows.Scan(
			&e.RepositoryName, &e.FilePath, &e.FileName, &e.FileExtension, &e.ChunkIndex,
			&e.TotalChunks, &e.Content, &e.Model, &e.Type,
			&e.Language, &e.TokenCount, &e.ChunkStrategy,
			&summaryText, &summaryConfidence,
			&summaryType, &summaryModel,
			&e.CreatedAt, &hit.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scan similar: %w", err)
		}
		if e.Type == domain.EmbeddingTypeSummary {
			e.Summary = &domain.SummaryDetail{
				Text:       summaryText,
				Confidence: summaryConfidence,
				Type:       summaryType,
				Model:      summaryModel,
			}
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// DeleteRepositoryEmbeddings removes every embedding and the repository row.
func (v *VectorStore) DeleteRepositoryEmbeddings(ctx context.Context, repositoryName string) error {
	res, err := v.store.db.ExecContext(ctx, `DELETE FROM repositories WHERE name = $1`, repositoryName)
	if err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return port.ErrRepositoryNotFound
	}
	return nil
}

// DeleteFileEmbeddings removes all embeddings for one file.
func (v *VectorStore) DeleteFileEmbeddings(ctx context.Context, repositoryName, filePath string) error {
	_, err := v.store.db.ExecContext(ctx, `
		DELETE FROM file_embeddings e
		USING repositories r
		WHERE e.repository_id = r.id AND r.name = $1 AND e.file_path = $2`,
		repositoryName, filePath)
	if err != nil {
		return fmt.Errorf("delete file embeddings: %w", err)
	}
	return nil
}

// GetRepositoryStats aggregates embedding counts for one repository, or
// globally when repositoryName is empty.
func (v *VectorStore) GetRepositoryStats(ctx context.Context, repositoryName string) (*domain.RepositoryStats, error) {
	stats := &domain.RepositoryStats{Repository: repositoryName}

	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE e.embedding_type = 'code'),
		       COUNT(*) FILTER (WHERE e.embedding_type = 'summary'),
		       COUNT(DISTINCT (e.repository_id, e.file_path)),
		       COUNT(DISTINCT e.repository_id)
		FROM file_embeddings e
		JOIN repositories r ON r.id = e.repository_id`
	args := []interface{}{}
	if repositoryName != "" {
		query += ` WHERE r.name = $1`
		args = append(args, repositoryName)
	}

	err := v.store.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalEmbeddings, &stats.CodeEmbeddings, &stats.SummaryEmbeddings,
		&stats.UniqueFiles, &stats.Repositories,
	)
	if err != nil {
		return nil, fmt.Errorf("repository stats: %w", err)
	}
	if repositoryName != "" {
		stats.Repositories = 0
	}
	return stats, nil
}

// ListRepositories returns all known repositories.
func (v *VectorStore) ListRepositories(ctx context.Context) ([]domain.Repository, error) {
	return v.store.ListRepositories(ctx)
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

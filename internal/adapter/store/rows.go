package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
)

// buildRows expands a FileUpsert into the embedding rows to insert: one code
// row per chunk plus one summary row per surviving summary. Both store
// backends use this so the persisted shape is identical.
func buildRows(up domain.FileUpsert) ([]domain.FileEmbedding, error) {
	if len(up.CodeVectors) != len(up.Chunks) {
		return nil, fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(up.Chunks), len(up.CodeVectors))
	}
	if len(up.SummaryVectors) != len(up.Summaries) {
		return nil, fmt.Errorf("summary/vector count mismatch: %d summaries, %d vectors", len(up.Summaries), len(up.SummaryVectors))
	}

	strategyByIndex := make(map[int]domain.ChunkStrategy, len(up.Chunks))
	for _, c := range up.Chunks {
		strategyByIndex[c.Index] = c.Strategy
	}

	now := time.Now()
	rows := make([]domain.FileEmbedding, 0, len(up.Chunks)+len(up.Summaries))

	base := domain.FileEmbedding{
		RepositoryName: up.RepositoryName,
		FilePath:       up.FilePath,
		FileName:       up.FileName,
		FileExtension:  up.FileExtension,
		FileSize:       up.FileSize,
		FileHash:       up.FileHash,
		TotalChunks:    len(up.Chunks),
		Model:          up.EmbeddingModel,
		Language:       up.Language,
		CreatedAt:      now,
	}

	for i, chunk := range up.Chunks {
		row := base
		row.ID = uuid.NewString()
		row.ChunkIndex = chunk.Index
		row.Content = chunk.Content
		row.Vector = up.CodeVectors[i]
		row.Type = domain.EmbeddingTypeCode
		row.TokenCount = chunk.TokenCount
		row.ChunkStrategy = chunk.Strategy
		rows = append(rows, row)
	}

	for i, s := range up.Summaries {
		row := base
		row.ID = uuid.NewString()
		row.ChunkIndex = s.ChunkIndex
		row.Content = s.Text
		row.Vector = up.SummaryVectors[i]
		row.Type = domain.EmbeddingTypeSummary
		row.TokenCount = domain.EstimateTokens(s.Text)
		row.ChunkStrategy = strategyByIndex[s.ChunkIndex]
		row.Summary = &domain.SummaryDetail{
			Text:       s.Text,
			Confidence: s.Confidence,
			Type:       s.Type,
			Model:      s.Model,
			Metadata:   s.Metadata,
		}
		rows = append(rows, row)
	}
	return rows, nil
}

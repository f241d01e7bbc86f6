package store

import (
	"context"
	"errors"
	"testing"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/port"
)

func upsertFixture(repo, path string, vectors [][]float32) domain.FileUpsert {
	chunks := make([]domain.Chunk, len(vectors))
	for i := range vectors {
		chunks[i] = domain.Chunk{
			Content:    "chunk " + path,
			Index:      i,
			TokenCount: 4,
			Strategy:   domain.StrategyPattern,
		}
	}
	return domain.FileUpsert{
		RepositoryName: repo,
		FilePath:       path,
		FileName:       path,
		FileExtension:  ".tf",
		Language:       "terraform",
		EmbeddingModel: "hash-v1",
		Chunks:         chunks,
		CodeVectors:    vectors,
	}
}

func TestUpsertReplacesFileEmbeddings(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	up := upsertFixture("infra", "main.tf", [][]float32{{1, 0}, {0, 1}})
	up.Summaries = []domain.Summary{{ChunkIndex: 0, Text: "bucket summary", Confidence: 0.9}}
	up.SummaryVectors = [][]float32{{0.5, 0.5}}

	if err := s.UpsertFileEmbeddings(ctx, up); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := s.Count("infra", "main.tf"); got != 3 {
		t.Fatalf("count after first upsert = %d, want 3", got)
	}

	// Same file again: old rows replaced, not accumulated.
	if err := s.UpsertFileEmbeddings(ctx, up); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if got := s.Count("infra", "main.tf"); got != 3 {
		t.Errorf("count after re-upsert = %d, want 3", got)
	}

	// A different file accumulates.
	if err := s.UpsertFileEmbeddings(ctx, upsertFixture("infra", "vars.tf", [][]float32{{1, 1}})); err != nil {
		t.Fatalf("upsert vars.tf: %v", err)
	}
	if got := s.Count("infra", ""); got != 4 {
		t.Errorf("total count = %d, want 4", got)
	}
}

func TestUpsertRejectsCountMismatch(t *testing.T) {
	s := NewMemoryStore()
	up := upsertFixture("infra", "main.tf", [][]float32{{1, 0}})
	up.Chunks = append(up.Chunks, domain.Chunk{Index: 1, Content: "extra"})

	if err := s.UpsertFileEmbeddings(context.Background(), up); err == nil {
		t.Fatal("expected chunk/vector mismatch error")
	}
}

func TestSearchSimilarOrdersAndFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for path, vec := range map[string][]float32{
		"exact.tf":    {1, 0},
		"close.tf":    {0.9, 0.1},
		"orthog.tf":   {0, 1},
		"opposite.tf": {-1, 0},
	} {
		if err := s.UpsertFileEmbeddings(ctx, upsertFixture("infra", path, [][]float32{vec})); err != nil {
			t.Fatalf("upsert %s: %v", path, err)
		}
	}

	hits, err := s.SearchSimilar(ctx, []float32{1, 0}, 10, 0.5, port.SearchFilter{Repository: "infra"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits above threshold, want 2", len(hits))
	}
	if hits[0].Embedding.FilePath != "exact.tf" {
		t.Errorf("top hit = %s, want exact.tf", hits[0].Embedding.FilePath)
	}
	if hits[0].Similarity < hits[1].Similarity {
		t.Errorf("hits not sorted: %f then %f", hits[0].Similarity, hits[1].Similarity)
	}

	// topK truncation.
	hits, err = s.SearchSimilar(ctx, []float32{1, 0}, 1, -1, port.SearchFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("topK=1 returned %d hits", len(hits))
	}

	// Unknown repository matches nothing.
	hits, err = s.SearchSimilar(ctx, []float32{1, 0}, 10, 0, port.SearchFilter{Repository: "other"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits for unknown repository, got %d", len(hits))
	}
}

func TestSearchSimilarEmbeddingTypeFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	up := upsertFixture("infra", "main.tf", [][]float32{{1, 0}})
	up.Summaries = []domain.Summary{{ChunkIndex: 0, Text: "summary", Confidence: 0.8}}
	up.SummaryVectors = [][]float32{{1, 0}}
	if err := s.UpsertFileEmbeddings(ctx, up); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := s.SearchSimilar(ctx, []float32{1, 0}, 10, 0, port.SearchFilter{
		EmbeddingTypes: []domain.EmbeddingType{domain.EmbeddingTypeSummary},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1 summary row", len(hits))
	}
	if hits[0].Embedding.Type != domain.EmbeddingTypeSummary {
		t.Errorf("hit type = %s", hits[0].Embedding.Type)
	}
	if hits[0].Embedding.Summary == nil || hits[0].Embedding.Summary.Text != "summary" {
		t.Errorf("summary detail missing: %+v", hits[0].Embedding.Summary)
	}
}

func TestDeleteSemantics(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.UpsertFileEmbeddings(ctx, upsertFixture("infra", "main.tf", [][]float32{{1, 0}})); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := s.DeleteFileEmbeddings(ctx, "infra", "main.tf"); err != nil {
		t.Fatalf("delete file: %v", err)
	}
	if got := s.Count("infra", "main.tf"); got != 0 {
		t.Errorf("count after file delete = %d", got)
	}

	if err := s.DeleteRepositoryEmbeddings(ctx, "infra"); err != nil {
		t.Fatalf("delete repository: %v", err)
	}
	if err := s.DeleteRepositoryEmbeddings(ctx, "infra"); !errors.Is(err, port.ErrRepositoryNotFound) {
		t.Errorf("second delete err = %v, want ErrRepositoryNotFound", err)
	}
	if err := s.DeleteFileEmbeddings(ctx, "infra", "main.tf"); !errors.Is(err, port.ErrRepositoryNotFound) {
		t.Errorf("file delete on missing repository err = %v", err)
	}
}

func TestRepositoryStatsAndListing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	up := upsertFixture("alpha", "main.tf", [][]float32{{1, 0}, {0, 1}})
	up.Summaries = []domain.Summary{{ChunkIndex: 0, Text: "s", Confidence: 1}}
	up.SummaryVectors = [][]float32{{1, 1}}
	if err := s.UpsertFileEmbeddings(ctx, up); err != nil {
		t.Fatalf("upsert alpha: %v", err)
	}
	if err := s.UpsertFileEmbeddings(ctx, upsertFixture("beta", "net.tf", [][]float32{{1, 0}})); err != nil {
		t.Fatalf("upsert beta: %v", err)
	}

	stats, err := s.GetRepositoryStats(ctx, "alpha")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEmbeddings != 3 || stats.CodeEmbeddings != 2 || stats.SummaryEmbeddings != 1 {
		t.Errorf("alpha stats = %+v", stats)
	}
	if stats.UniqueFiles != 1 {
		t.Errorf("alpha unique files = %d", stats.UniqueFiles)
	}

	global, err := s.GetRepositoryStats(ctx, "")
	if err != nil {
		t.Fatalf("global stats: %v", err)
	}
	if global.TotalEmbeddings != 4 || global.Repositories != 2 || global.UniqueFiles != 2 {
		t.Errorf("global stats = %+v", global)
	}

	repos, err := s.ListRepositories(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(repos) != 2 || repos[0].Name != "alpha" || repos[1].Name != "beta" {
		t.Errorf("repositories = %+v", repos)
	}
}

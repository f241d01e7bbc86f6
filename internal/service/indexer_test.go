package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/adapter/ai"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/adapter/chunker"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/adapter/store"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/port"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/retry"
)

type stubSummarizer struct{}

func (stubSummarizer) ModelName() string { return "stub" }

func (stubSummarizer) Summarize(_ context.Context, chunk domain.Chunk) (*domain.Summary, error) {
	return &domain.Summary{ChunkIndex: chunk.Index, Text: "describes one block", Confidence: 0.9}, nil
}

func (s stubSummarizer) BatchSummarize(ctx context.Context, chunks []domain.Chunk) ([]domain.Summary, error) {
	out := make([]domain.Summary, 0, len(chunks))
	for _, c := range chunks {
		sum, _ := s.Summarize(ctx, c)
		out = append(out, *sum)
	}
	return out, nil
}

// failingEmbedder delegates to a hash embedder but rejects any batch whose
// text contains the trigger token.
type failingEmbedder struct {
	inner   port.Embedder
	trigger string
}

func (f *failingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.Contains(t, f.trigger) {
			return nil, errors.New("embedding validation failed")
		}
	}
	return f.inner.EmbedTexts(ctx, texts)
}

func (f *failingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.inner.EmbedQuery(ctx, text)
}

func (f *failingEmbedder) Dimension() int    { return f.inner.Dimension() }
func (f *failingEmbedder) ModelName() string { return f.inner.ModelName() }

func fastTestPolicy() *retry.Policy {
	p := retry.NewPolicy()
	for _, cat := range []string{retry.CategoryFileIO, retry.CategoryEmbedding, retry.CategoryLLM, retry.CategoryVectorStore} {
		p.WithProfile(cat, retry.Profile{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})
	}
	return p
}

func writeRepoFile(t *testing.T, root, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newTestIndexer(vectorStore port.VectorStore, embedder port.Embedder) *IndexerService {
	return NewIndexerService(
		vectorStore,
		embedder,
		stubSummarizer{},
		chunker.NewHCLParser(),
		chunker.New(512, 50),
		NewJobTracker(),
		fastTestPolicy(),
		nil,
		IndexerOptions{
			MaxConcurrentFiles: 2,
			MaxFiles:           50,
			DefaultExtensions:  []string{".tf"},
			SummariesEnabled:   true,
		},
	)
}

func TestEmbedRepositoryEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "main.tf", `resource "aws_s3_bucket" "assets" {
  bucket        = "example-static-assets"
  force_destroy = true
}
`)
	writeRepoFile(t, root, "outputs.tf", `output "region_name" {
  value = var.region
}
`)

	memStore := store.NewMemoryStore()
	embedder := ai.NewHashEmbedder(256)
	indexer := newTestIndexer(memStore, embedder)

	result, err := indexer.EmbedRepository(context.Background(), domain.EmbedRequest{
		RepositoryName: "infra",
		RepositoryPath: root,
		Recursive:      true,
	})
	if err != nil {
		t.Fatalf("embed repository: %v", err)
	}

	if result.Status != domain.JobCompleted {
		t.Fatalf("status = %s, want completed", result.Status)
	}
	if result.FilesDiscovered != 2 || result.FilesProcessed != 2 {
		t.Errorf("files = %d/%d, want 2/2", result.FilesProcessed, result.FilesDiscovered)
	}
	if result.ChunksCreated < 2 {
		t.Errorf("chunks = %d, want >= 2", result.ChunksCreated)
	}
	if result.EmbeddingsGenerated < result.ChunksCreated {
		t.Errorf("embeddings %d < chunks %d", result.EmbeddingsGenerated, result.ChunksCreated)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %+v", result.Errors)
	}

	// Code and summary rows both stored.
	stats, err := memStore.GetRepositoryStats(context.Background(), "infra")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CodeEmbeddings < 2 || stats.SummaryEmbeddings < 2 {
		t.Errorf("stats = %+v", stats)
	}

	// The bucket resource should come back first for a bucket query.
	retriever := NewRetrieverService(memStore, embedder, fastTestPolicy(), nil)
	retrieved, err := retriever.Retrieve(context.Background(), "aws_s3_bucket assets bucket", domain.RetrieveOptions{
		Repository:        "infra",
		MaxResults:        3,
		IncludeCodeChunks: true,
	})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(retrieved.Documents) == 0 {
		t.Fatal("no documents retrieved")
	}
	if retrieved.Documents[0].FilePath != "main.tf" {
		t.Errorf("top hit = %s, want main.tf", retrieved.Documents[0].FilePath)
	}
}

func TestEmbedRepositoryIsolatesFileFailures(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.tf", `variable "region" {
  default = "us-east-1"
}
`)
	writeRepoFile(t, root, "b.tf", `variable "boomtoken" {
  default = "x"
}
`)
	writeRepoFile(t, root, "c.tf", `output "done" {
  value = true
}
`)

	memStore := store.NewMemoryStore()
	embedder := &failingEmbedder{inner: ai.NewHashEmbedder(64), trigger: "boomtoken"}
	indexer := newTestIndexer(memStore, embedder)

	result, err := indexer.EmbedRepository(context.Background(), domain.EmbedRequest{
		RepositoryName: "infra",
		RepositoryPath: root,
		Recursive:      true,
	})
	if err != nil {
		t.Fatalf("embed repository: %v", err)
	}

	if result.Status != domain.JobCompleted {
		t.Errorf("status = %s, want completed despite file failure", result.Status)
	}
	if result.FilesProcessed != 2 {
		t.Errorf("files processed = %d, want 2", result.FilesProcessed)
	}
	if len(result.Errors) != 1 || result.Errors[0].FilePath != "b.tf" {
		t.Errorf("errors = %+v, want one for b.tf", result.Errors)
	}
	if got := memStore.Count("infra", "b.tf"); got != 0 {
		t.Errorf("failed file left %d rows", got)
	}
}

func TestEmbedRepositoryReindexDoesNotAccumulate(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "main.tf", `resource "aws_vpc" "main" {
  cidr_block = "10.0.0.0/16"
}
`)

	memStore := store.NewMemoryStore()
	indexer := newTestIndexer(memStore, ai.NewHashEmbedder(64))
	req := domain.EmbedRequest{
		RepositoryName: "infra",
		RepositoryPath: root,
		Recursive:      true,
		Reindex:        true,
	}

	if _, err := indexer.EmbedRepository(context.Background(), req); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := memStore.Count("infra", "")

	if _, err := indexer.EmbedRepository(context.Background(), req); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := memStore.Count("infra", ""); got != first {
		t.Errorf("count after reindex = %d, want %d", got, first)
	}
}

func TestEmbedRepositoryInvalidPath(t *testing.T) {
	indexer := newTestIndexer(store.NewMemoryStore(), ai.NewHashEmbedder(64))

	result, err := indexer.EmbedRepository(context.Background(), domain.EmbedRequest{
		RepositoryName: "infra",
		RepositoryPath: filepath.Join(t.TempDir(), "missing"),
	})
	if !errors.Is(err, port.ErrInvalidPath) {
		t.Fatalf("err = %v, want ErrInvalidPath", err)
	}
	if result.Status != domain.JobFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
}

func TestCancelUnknownJob(t *testing.T) {
	indexer := newTestIndexer(store.NewMemoryStore(), ai.NewHashEmbedder(64))
	if err := indexer.Cancel("missing"); !errors.Is(err, port.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

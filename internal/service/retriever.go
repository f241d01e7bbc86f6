package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/port"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/retry"
)

// overFetchFactor controls how many raw hits are requested beyond MaxResults
// to leave room for post-filtering.
const overFetchFactor = 3

// RetrieverService embeds a free-text query, searches the vector store and
// returns a ranked, deduplicated document list for prompt construction.
type RetrieverService struct {
	store    port.VectorStore
	embedder port.Embedder
	policy   *retry.Policy
	monitor  Monitor
}

// NewRetrieverService wires the read path. monitor may be nil.
func NewRetrieverService(store port.VectorStore, embedder port.Embedder, policy *retry.Policy, mon Monitor) *RetrieverService {
	return &RetrieverService{store: store, embedder: embedder, policy: policy, monitor: mon}
}

// Retrieve runs one query against one (or all) repositories.
func (s *RetrieverService) Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) (*domain.RetrievalResult, error) {
	metricID := s.recordStart("retrieve")

	queryVector, err := s.embedQuery(ctx, query)
	if err != nil {
		s.recordEnd(metricID, false, err)
		return nil, err
	}

	result, err := s.search(ctx, query, queryVector, opts)
	s.recordEnd(metricID, err == nil, err)
	return result, err
}

// RetrieveMulti fans out one search per repository concurrently. A failure in
// one repository's branch becomes a value in that branch's result; it never
// fails or cancels the siblings.
func (s *RetrieverService) RetrieveMulti(ctx context.Context, query string, repositories []string, opts domain.RetrieveOptions) (map[string]*domain.RetrievalResult, error) {
	metricID := s.recordStart("retrieve_multi")

	// Embed once, share the vector across branches.
	queryVector, err := s.embedQuery(ctx, query)
	if err != nil {
		s.recordEnd(metricID, false, err)
		return nil, err
	}

	results := make(map[string]*domain.RetrievalResult, len(repositories))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, repo := range repositories {
		wg.Add(1)
		go func(repo string) {
			defer wg.Done()
			branchOpts := opts
			branchOpts.Repository = repo

			branch, branchErr := s.search(ctx, query, queryVector, branchOpts)
			if branchErr != nil {
				slog.Warn("repository search failed, isolating branch", "repository", repo, "error", branchErr)
				branch = &domain.RetrievalResult{Query: query, Repository: repo, Err: branchErr.Error()}
			}
			mu.Lock()
			results[repo] = branch
			mu.Unlock()
		}(repo)
	}
	wg.Wait()

	s.recordEnd(metricID, true, nil)
	return results, nil
}

func (s *RetrieverService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	var queryVector []float32
	err := s.policy.Execute(ctx, retry.CategoryEmbedding, func(ctx context.Context) error {
		vec, embErr := s.embedder.EmbedQuery(ctx, query)
		if embErr != nil {
			return embErr
		}
		queryVector = vec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return queryVector, nil
}

func (s *RetrieverService) search(ctx context.Context, query string, queryVector []float32, opts domain.RetrieveOptions) (*domain.RetrievalResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	rawK := maxResults * overFetchFactor
	if rawK < 10 {
		rawK = 10
	}

	var types []domain.EmbeddingType
	if opts.IncludeCodeChunks {
		types = append(types, domain.EmbeddingTypeCode)
	}
	if opts.IncludeSummaries {
		types = append(types, domain.EmbeddingTypeSummary)
	}
	if len(types) == 0 {
		types = []domain.EmbeddingType{domain.EmbeddingTypeCode, domain.EmbeddingTypeSummary}
	}

	filter := port.SearchFilter{
		Repository:     opts.Repository,
		FileExtensions: opts.FileExtensions,
		EmbeddingTypes: types,
	}

	var hits []domain.SearchHit
	err := s.policy.Execute(ctx, retry.CategoryVectorStore, func(ctx context.Context) error {
		found, searchErr := s.store.SearchSimilar(ctx, queryVector, rawK, opts.SimilarityThreshold, filter)
		if searchErr != nil {
			return searchErr
		}
		hits = found
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}

	documents := make([]domain.RetrievedDocument, 0, len(hits))
	for _, hit := range hits {
		documents = append(documents, toDocument(hit))
	}
	sort.SliceStable(documents, func(i, j int) bool { return documents[i].Similarity > documents[j].Similarity })
	if len(documents) > maxResults {
		documents = documents[:maxResults]
	}

	return &domain.RetrievalResult{
		Query:      query,
		Repository: opts.Repository,
		Documents:  documents,
	}, nil
}

func toDocument(hit domain.SearchHit) domain.RetrievedDocument {
	e := hit.Embedding
	content := e.Content
	if e.Type == domain.EmbeddingTypeSummary && e.Summary != nil && e.Summary.Text != "" {
		content = e.Summary.Text
	}
	return domain.RetrievedDocument{
		Content:    content,
		SourceType: e.Type,
		Repository: e.RepositoryName,
		FilePath:   e.FilePath,
		ChunkIndex: e.ChunkIndex,
		Language:   e.Language,
		Similarity: hit.Similarity,
	}
}

func (s *RetrieverService) recordStart(operation string) string {
	if s.monitor == nil {
		return ""
	}
	return s.monitor.RecordStart(operation)
}

func (s *RetrieverService) recordEnd(metricID string, success bool, err error) {
	if s.monitor == nil {
		return
	}
	s.monitor.RecordEnd(metricID, success, err)
}

package store

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/port"
)

// MemoryStore is an in-process port.VectorStore using brute-force cosine
// similarity. It backs tests and the "memory" backend mode, and mirrors the
// pgvector store's filtering semantics exactly: the similarity >= threshold
// cut is the same set the distance-domain filter would keep.
type MemoryStore struct {
	mu    sync.RWMutex
	repos map[string]*memRepo
}

type memRepo struct {
	repo domain.Repository
	rows []domain.FileEmbedding
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{repos: make(map[string]*memRepo)}
}

// UpsertFileEmbeddings replaces all prior embeddings for the upsert's
// (repository, file_path) pair, creating the repository if needed.
func (s *MemoryStore) UpsertFileEmbeddings(ctx context.Context, up domain.FileUpsert) error {
	rows, err := buildRows(up)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.repos[up.RepositoryName]
	if !ok {
		r = &memRepo{repo: domain.Repository{
			ID:          uuid.NewString(),
			Name:        up.RepositoryName,
			URL:         up.RepositoryURL,
			Description: up.RepositoryDesc,
			CreatedAt:   time.Now(),
		}}
		s.repos[up.RepositoryName] = r
	}

	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.FilePath != up.FilePath {
			kept = append(kept, row)
		}
	}
	r.rows = kept

	for i := range rows {
		rows[i].RepositoryID = r.repo.ID
	}
	r.rows = append(r.rows, rows...)
	return nil
}

// SearchSimilar returns hits ordered descending by cosine similarity,
// truncated to topK and filtered to similarity >= threshold.
func (s *MemoryStore) SearchSimilar(ctx context.Context, queryVector []float32, topK int, threshold float64, filter port.SearchFilter) ([]domain.SearchHit, error) {
	if topK <= 0 {
		topK = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []domain.SearchHit
	for name, r := range s.repos {
		if filter.Repository != "" && filter.Repository != name {
			continue
		}
		for _, row := range r.rows {
			if !matchesFilter(row, filter) {
				continue
			}
			sim := cosineSimilarity(queryVector, row.Vector)
			if sim < threshold {
				continue
			}
			e := row
			e.RepositoryName = name
			e.Vector = nil
			hits = append(hits, domain.SearchHit{Embedding: e, Similarity: sim})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func matchesFilter(row domain.FileEmbedding, filter port.SearchFilter) bool {
	if len(filter.FileExtensions) > 0 {
		found := false
		for _, ext := range filter.FileExtensions {
			if row.FileExtension == ext {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.EmbeddingTypes) > 0 {
		found := false
		for _, t := range filter.EmbeddingTypes {
			if row.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// DeleteRepositoryEmbeddings removes every embedding and the repository row.
func (s *MemoryStore) DeleteRepositoryEmbeddings(ctx context.Context, repositoryName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.repos[repositoryName]; !ok {
		return port.ErrRepositoryNotFound
	}
	delete(s.repos, repositoryName)
	return nil
}

// DeleteFileEmbeddings removes all embeddings for one file.
func (s *MemoryStore) DeleteFileEmbeddings(ctx context.Context, repositoryName, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[repositoryName]
	if !ok {
		return port.ErrRepositoryNotFound
	}
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.FilePath != filePath {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

// GetRepositoryStats aggregates counts for one repository, or globally when
// repositoryName is empty.
func (s *MemoryStore) GetRepositoryStats(ctx context.Context, repositoryName string) (*domain.RepositoryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.RepositoryStats{Repository: repositoryName}
	files := make(map[string]bool)

	for name, r := range s.repos {
		if repositoryName != "" && repositoryName != name {
			continue
		}
		if repositoryName == "" {
			stats.Repositories++
		}
		for _, row := range r.rows {
			stats.TotalEmbeddings++
			switch row.Type {
			case domain.EmbeddingTypeCode:
				stats.CodeEmbeddings++
			case domain.EmbeddingTypeSummary:
				stats.SummaryEmbeddings++
			}
			files[name+"\x00"+row.FilePath] = true
		}
	}
	stats.UniqueFiles = len(files)
	return stats, nil
}

// ListRepositories returns all known repositories.
func (s *MemoryStore) ListRepositories(ctx context.Context) ([]domain.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Repository, 0, len(s.repos))
	for _, r := range s.repos {
		out = append(out, r.repo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Count returns the number of stored embeddings for a (repository, file)
// pair. Test helper.
func (s *MemoryStore) Count(repositoryName, filePath string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.repos[repositoryName]
	if !ok {
		return 0
	}
	n := 0
	for _, row := range r.rows {
		if filePath == "" || row.FilePath == filePath {
			n++
		}
	}
	return n
}

// cosineSimilarity computes the cosine of the angle between a and b,
// tolerating non-normalized inputs.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/adapter/chunker"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/adapter/fs"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/port"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/retry"
)

// Monitor is the metric surface the services record against. Satisfied by
// *monitor.Service; nil disables recording.
type Monitor interface {
	RecordStart(operation string) string
	RecordEnd(metricID string, success bool, err error)
}

// IndexerOptions bound one repository-embedding job.
type IndexerOptions struct {
	MaxConcurrentFiles   int
	MaxFiles             int
	DefaultExtensions    []string
	ExcludeGlobs         []string
	SummariesEnabled     bool
	SummaryMinConfidence float64
}

// IndexerService orchestrates repository embedding: discover files, then
// drive each through chunk → summarize → embed → store with bounded
// concurrency. One file's failure never fails the job.
type IndexerService struct {
	store      port.VectorStore
	embedder   port.Embedder
	summarizer port.Summarizer // nil disables summaries
	parser     port.Parser
	chunker    *chunker.Chunker
	tracker    *JobTracker
	policy     *retry.Policy
	monitor    Monitor
	locks      *lockArena
	opts       IndexerOptions
}

// NewIndexerService wires the orchestrator. monitor may be nil.
func NewIndexerService(
	store port.VectorStore,
	embedder port.Embedder,
	summarizer port.Summarizer,
	parser port.Parser,
	ch *chunker.Chunker,
	tracker *JobTracker,
	policy *retry.Policy,
	mon Monitor,
	opts IndexerOptions,
) *IndexerService {
	if opts.MaxConcurrentFiles <= 0 {
		opts.MaxConcurrentFiles = 4
	}
	return &IndexerService{
		store:      store,
		embedder:   embedder,
		summarizer: summarizer,
		parser:     parser,
		chunker:    ch,
		tracker:    tracker,
		policy:     policy,
		monitor:    mon,
		locks:      newLockArena(),
		opts:       opts,
	}
}

// Tracker exposes the job tracker for status handlers.
func (s *IndexerService) Tracker() *JobTracker { return s.tracker }

// EmbedRepository runs one embedding job synchronously and returns its final
// result. Only setup-level failures (bad path, discovery failure) surface as
// the returned error; per-file failures land in the result's error list.
func (s *IndexerService) EmbedRepository(ctx context.Context, req domain.EmbedRequest) (domain.ProcessingResult, error) {
	job := s.tracker.Create(req.RepositoryName)
	err := s.run(ctx, job.JobID, req)
	final, _ := s.tracker.Get(job.JobID)
	return final, err
}

// EmbedRepositoryAsync starts a job in the background and returns its
// pending snapshot immediately.
func (s *IndexerService) EmbedRepositoryAsync(req domain.EmbedRequest) domain.ProcessingResult {
	job := s.tracker.Create(req.RepositoryName)
	go func() {
		if err := s.run(context.Background(), job.JobID, req); err != nil {
			slog.Error("embedding job failed", "job_id", job.JobID, "repository", req.RepositoryName, "error", err)
		}
	}()
	return job
}

// Cancel requests cooperative cancellation of a processing job.
func (s *IndexerService) Cancel(jobID string) error {
	if _, ok := s.tracker.Get(jobID); !ok {
		return port.ErrJobNotFound
	}
	s.tracker.Cancel(jobID)
	return nil
}

func (s *IndexerService) run(ctx context.Context, jobID string, req domain.EmbedRequest) error {
	metricID := s.recordStart("embed_repository")
	s.tracker.Start(jobID)

	extensions := req.FileExtensions
	if len(extensions) == 0 {
		extensions = s.opts.DefaultExtensions
	}
	maxFiles := req.MaxFiles
	if maxFiles <= 0 {
		maxFiles = s.opts.MaxFiles
	}

	walker := fs.NewWalker(extensions, s.opts.ExcludeGlobs, maxFiles)
	files, truncated, err := walker.Discover(req.RepositoryPath, req.Recursive)
	if err != nil {
		s.tracker.Finish(jobID, domain.JobFailed)
		s.recordEnd(metricID, false, err)
		return fmt.Errorf("discover files: %w", err)
	}
	if truncated {
		slog.Warn("file discovery truncated at cap, keeping first files in walk order",
			"job_id", jobID, "max_files", maxFiles)
	}
	s.tracker.SetDiscovered(jobID, len(files))
	slog.Info("embedding repository", "job_id", jobID, "repository", req.RepositoryName, "files", len(files))

	if req.Reindex {
		if err := s.store.DeleteRepositoryEmbeddings(ctx, req.RepositoryName); err != nil && !errors.Is(err, port.ErrRepositoryNotFound) {
			s.tracker.Finish(jobID, domain.JobFailed)
			s.recordEnd(metricID, false, err)
			return fmt.Errorf("reindex cleanup: %w", err)
		}
	}

	sem := semaphore.NewWeighted(int64(s.opts.MaxConcurrentFiles))
	var wg sync.WaitGroup

	for _, file := range files {
		if s.tracker.IsCancelled(jobID) {
			slog.Info("job cancelled, stopping dispatch", "job_id", jobID)
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(file fs.FileInfo) {
			defer wg.Done()
			defer sem.Release(1)
			s.processFile(ctx, jobID, req, file)
		}(file)
	}
	wg.Wait()

	s.tracker.Finish(jobID, domain.JobCompleted)
	final, _ := s.tracker.Get(jobID)
	slog.Info("embedding job finished",
		"job_id", jobID,
		"status", final.Status,
		"files_processed", final.FilesProcessed,
		"chunks", final.ChunksCreated,
		"embeddings", final.EmbeddingsGenerated,
		"errors", len(final.Errors),
	)
	s.recordEnd(metricID, true, nil)
	return nil
}

// processFile drives one file through the read → parse → chunk → summarize →
// embed → store pipeline. Every failure is recorded against the job and
// isolated from sibling files.
func (s *IndexerService) processFile(ctx context.Context, jobID string, req domain.EmbedRequest, file fs.FileInfo) {
	metricID := s.recordStart("process_file")

	var content string
	err := s.policy.Execute(ctx, retry.CategoryFileIO, func(ctx context.Context) error {
		data, readErr := os.ReadFile(file.Path)
		if readErr != nil {
			return readErr
		}
		content = string(data)
		return nil
	})
	if err != nil {
		s.fileFailed(jobID, metricID, file.RelPath, fmt.Errorf("read: %w", err))
		return
	}

	// Parse failure degrades to unparsed chunking, never a hard error.
	parsed, parseErr := s.parser.Parse(file.RelPath, content)
	if parseErr != nil {
		slog.Debug("structural parse failed, degrading", "file", file.RelPath, "error", parseErr)
		parsed = nil
	}

	chunks := s.chunker.Chunk(content, file.RelPath, parsed)
	if len(chunks) == 0 {
		s.tracker.AddFileResult(jobID, 0, 0)
		s.recordEnd(metricID, true, nil)
		return
	}

	summaries := s.summarize(ctx, file.RelPath, chunks)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	var codeVectors [][]float32
	err = s.policy.Execute(ctx, retry.CategoryEmbedding, func(ctx context.Context) error {
		vectors, embErr := s.embedder.EmbedTexts(ctx, texts)
		if embErr != nil {
			return embErr
		}
		codeVectors = vectors
		return nil
	})
	if err != nil {
		s.fileFailed(jobID, metricID, file.RelPath, fmt.Errorf("embed code: %w", err))
		return
	}

	var summaryVectors [][]float32
	if len(summaries) > 0 {
		summaryTexts := make([]string, len(summaries))
		for i, sum := range summaries {
			summaryTexts[i] = sum.Text
		}
		err = s.policy.Execute(ctx, retry.CategoryEmbedding, func(ctx context.Context) error {
			vectors, embErr := s.embedder.EmbedTexts(ctx, summaryTexts)
			if embErr != nil {
				return embErr
			}
			summaryVectors = vectors
			return nil
		})
		if err != nil {
			// Code embeddings still proceed without summaries.
			slog.Warn("summary embedding failed, storing code only", "file", file.RelPath, "error", err)
			summaries = nil
			summaryVectors = nil
		}
	}

	hash := sha256.Sum256([]byte(content))
	up := domain.FileUpsert{
		RepositoryName: req.RepositoryName,
		RepositoryURL:  req.RepositoryURL,
		RepositoryDesc: req.Description,
		FilePath:       file.RelPath,
		FileName:       filepath.Base(file.RelPath),
		FileExtension:  strings.ToLower(filepath.Ext(file.RelPath)),
		FileSize:       file.Size,
		FileHash:       hex.EncodeToString(hash[:]),
		Language:       detectLanguage(file.RelPath),
		EmbeddingModel: s.embedder.ModelName(),
		Chunks:         chunks,
		CodeVectors:    codeVectors,
		Summaries:      summaries,
		SummaryVectors: summaryVectors,
	}

	release := s.locks.acquire(req.RepositoryName, file.RelPath)
	err = s.policy.Execute(ctx, retry.CategoryVectorStore, func(ctx context.Context) error {
		return s.store.UpsertFileEmbeddings(ctx, up)
	})
	release()
	if err != nil {
		s.fileFailed(jobID, metricID, file.RelPath, fmt.Errorf("store embeddings: %w", err))
		return
	}

	s.tracker.AddFileResult(jobID, len(chunks), len(codeVectors)+len(summaryVectors))
	s.recordEnd(metricID, true, nil)
}

// summarize produces per-chunk summaries, tolerating total failure: summary
// problems degrade to code-only embedding, they are never file errors.
func (s *IndexerService) summarize(ctx context.Context, relPath string, chunks []domain.Chunk) []domain.Summary {
	if s.summarizer == nil || !s.opts.SummariesEnabled {
		return nil
	}

	var summaries []domain.Summary
	err := s.policy.Execute(ctx, retry.CategoryLLM, func(ctx context.Context) error {
		out, sumErr := s.summarizer.BatchSummarize(ctx, chunks)
		if sumErr != nil {
			return sumErr
		}
		summaries = out
		return nil
	})
	if err != nil {
		slog.Warn("summarization failed, proceeding without summaries", "file", relPath, "error", err)
		return nil
	}

	if s.opts.SummaryMinConfidence > 0 {
		kept := summaries[:0]
		for _, sum := range summaries {
			if sum.Confidence >= s.opts.SummaryMinConfidence {
				kept = append(kept, sum)
			}
		}
		summaries = kept
	}
	return summaries
}

func (s *IndexerService) fileFailed(jobID, metricID, relPath string, err error) {
	slog.Warn("file processing failed", "job_id", jobID, "file", relPath, "error", err)
	s.tracker.AddFileError(jobID, relPath, err)
	s.recordEnd(metricID, false, err)
}

func (s *IndexerService) recordStart(operation string) string {
	if s.monitor == nil {
		return ""
	}
	return s.monitor.RecordStart(operation)
}

func (s *IndexerService) recordEnd(metricID string, success bool, err error) {
	if s.monitor == nil {
		return
	}
	s.monitor.RecordEnd(metricID, success, err)
}

// detectLanguage infers the source language from the file extension.
func detectLanguage(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".tf", ".tfvars":
		return "terraform"
	case ".hcl":
		return "hcl"
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".sh":
		return "shell"
	case ".py":
		return "python"
	case ".go":
		return "go"
	default:
		return "unknown"
	}
}

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
)

const summarySystemPrompt = `You are an infrastructure code analyst. Summarize the given Terraform/HCL snippet in one or two plain sentences: what it provisions or configures and any notable settings. Respond with JSON: {"summary": "...", "confidence": 0.0-1.0}.`

// ChatClient is the LLM surface the summarizer drives.
type ChatClient interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ChatModelName() string
}

// LLMSummarizer produces per-chunk natural-language summaries via an LLM
// chat endpoint. Batch summarization bounds concurrent calls with a weighted
// semaphore; failed or empty summaries are filtered out of batch results
// rather than propagated as errors.
type LLMSummarizer struct {
	client    ChatClient
	batchSize int64
	maxTokens int
}

// NewLLMSummarizer creates a summarizer. batchSize caps concurrent LLM calls.
func NewLLMSummarizer(client ChatClient, batchSize, maxTokens int) *LLMSummarizer {
	if batchSize <= 0 {
		batchSize = 4
	}
	if maxTokens <= 0 {
		maxTokens = 150
	}
	return &LLMSummarizer{client: client, batchSize: int64(batchSize), maxTokens: maxTokens}
}

// ModelName returns the summarization model identifier.
func (s *LLMSummarizer) ModelName() string { return s.client.ChatModelName() }

// Summarize returns a summary for one chunk, or nil when the model produced
// nothing usable.
func (s *LLMSummarizer) Summarize(ctx context.Context, chunk domain.Chunk) (*domain.Summary, error) {
	started := time.Now()

	prompt := chunk.Content
	if chunk.BlockType != "" {
		prompt = fmt.Sprintf("Block type: %s %s\n\n%s", chunk.BlockType, chunk.BlockName, chunk.Content)
	}

	raw, err := s.client.Chat(ctx, summarySystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("summarize chunk %d: %w", chunk.Index, err)
	}

	text, confidence := parseSummaryResponse(raw)
	if text == "" {
		return nil, nil
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"duration_ms": time.Since(started).Milliseconds(),
		"block_type":  chunk.BlockType,
		"strategy":    chunk.Strategy,
	})

	return &domain.Summary{
		ChunkIndex: chunk.Index,
		Text:       text,
		Confidence: confidence,
		Type:       "code_summary",
		Model:      s.client.ChatModelName(),
		Metadata:   string(meta),
	}, nil
}

// BatchSummarize summarizes chunks with bounded concurrency. The result keeps
// chunk order but may be shorter than the input: callers must tolerate
// len(summaries) <= len(chunks).
func (s *LLMSummarizer) BatchSummarize(ctx context.Context, chunks []domain.Chunk) ([]domain.Summary, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	sem := semaphore.NewWeighted(s.batchSize)
	results := make([]*domain.Summary, len(chunks))
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // context cancelled, keep what we have
		}
		wg.Add(1)
		go func(i int, chunk domain.Chunk) {
			defer wg.Done()
			defer sem.Release(1)
			summary, err := s.Summarize(ctx, chunk)
			if err != nil {
				slog.Warn("summary generation failed", "chunk", chunk.Index, "error", err)
				return
			}
			results[i] = summary
		}(i, chunk)
	}
	wg.Wait()

	out := make([]domain.Summary, 0, len(chunks))
	for _, r := range results {
		if r != nil && r.Text != "" {
			out = append(out, *r)
		}
	}
	return out, nil
}

// parseSummaryResponse extracts summary text and confidence from the model
// output. Non-JSON responses are accepted as plain text with a default
// confidence; confidence is clamped to [0, 1].
func parseSummaryResponse(raw string) (string, float64) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0
	}

	var parsed struct {
		Summary    string  `json:"summary"`
		Confidence float64 `json:"confidence"`
	}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err == nil && parsed.Summary != "" {
				return strings.TrimSpace(parsed.Summary), clamp01(parsed.Confidence)
			}
		}
	}
	return raw, 0.5
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

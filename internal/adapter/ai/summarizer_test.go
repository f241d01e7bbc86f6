package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
)

type stubChat struct {
	respond func(userPrompt string) (string, error)
}

func (s *stubChat) Chat(_ context.Context, _, userPrompt string) (string, error) {
	return s.respond(userPrompt)
}

func (s *stubChat) ChatModelName() string { return "stub-chat" }

func TestSummarizeParsesJSON(t *testing.T) {
	client := &stubChat{respond: func(string) (string, error) {
		return `{"summary": "Creates an S3 bucket for static assets.", "confidence": 0.9}`, nil
	}}
	s := NewLLMSummarizer(client, 2, 150)

	chunk := domain.Chunk{Index: 3, Content: "resource ...", BlockType: "resource", BlockName: "aws_s3_bucket.assets"}
	summary, err := s.Summarize(context.Background(), chunk)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary == nil {
		t.Fatal("expected a summary")
	}
	if summary.Text != "Creates an S3 bucket for static assets." {
		t.Errorf("text = %q", summary.Text)
	}
	if summary.Confidence != 0.9 {
		t.Errorf("confidence = %f, want 0.9", summary.Confidence)
	}
	if summary.ChunkIndex != 3 {
		t.Errorf("chunk index = %d, want 3", summary.ChunkIndex)
	}
	if summary.Model != "stub-chat" {
		t.Errorf("model = %q", summary.Model)
	}
	if !strings.Contains(summary.Metadata, "block_type") {
		t.Errorf("metadata missing block_type: %s", summary.Metadata)
	}
}

func TestSummarizeAcceptsPlainText(t *testing.T) {
	client := &stubChat{respond: func(string) (string, error) {
		return "Provisions a VPC with one subnet.", nil
	}}
	s := NewLLMSummarizer(client, 2, 150)

	summary, err := s.Summarize(context.Background(), domain.Chunk{Content: "resource ..."})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.Text != "Provisions a VPC with one subnet." {
		t.Errorf("text = %q", summary.Text)
	}
	if summary.Confidence != 0.5 {
		t.Errorf("confidence = %f, want fallback 0.5", summary.Confidence)
	}
}

func TestSummarizeEmptyResponse(t *testing.T) {
	client := &stubChat{respond: func(string) (string, error) { return "   ", nil }}
	s := NewLLMSummarizer(client, 2, 150)

	summary, err := s.Summarize(context.Background(), domain.Chunk{Content: "x"})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary != nil {
		t.Errorf("expected nil summary, got %+v", summary)
	}
}

func TestSummarizeClampsConfidence(t *testing.T) {
	client := &stubChat{respond: func(string) (string, error) {
		return `{"summary": "ok", "confidence": 3.5}`, nil
	}}
	s := NewLLMSummarizer(client, 2, 150)

	summary, err := s.Summarize(context.Background(), domain.Chunk{Content: "x"})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.Confidence != 1 {
		t.Errorf("confidence = %f, want clamped to 1", summary.Confidence)
	}
}

func TestBatchSummarizeFiltersFailures(t *testing.T) {
	client := &stubChat{respond: func(userPrompt string) (string, error) {
		if strings.Contains(userPrompt, "broken") {
			return "", errors.New("model overloaded")
		}
		return `{"summary": "fine", "confidence": 0.8}`, nil
	}}
	s := NewLLMSummarizer(client, 2, 150)

	chunks := []domain.Chunk{
		{Index: 0, Content: "resource a"},
		{Index: 1, Content: "broken chunk"},
		{Index: 2, Content: "resource c"},
	}
	summaries, err := s.BatchSummarize(context.Background(), chunks)
	if err != nil {
		t.Fatalf("batch summarize: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].ChunkIndex != 0 || summaries[1].ChunkIndex != 2 {
		t.Errorf("chunk order not preserved: %d, %d", summaries[0].ChunkIndex, summaries[1].ChunkIndex)
	}
}

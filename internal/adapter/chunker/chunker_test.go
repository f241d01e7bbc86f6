package chunker

import (
	"strings"
	"testing"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
)

const sampleHCL = `resource "aws_s3_bucket" "assets" {
  bucket = "example-assets"
  tags = {
    Env = "prod"
  }
}

variable "region" {
  type    = string
  default = "us-east-1"
}`

func TestChunkEmptyContent(t *testing.T) {
	c := New(512, 50)
	if got := c.Chunk("   \n\t\n", "main.tf", nil); got != nil {
		t.Fatalf("expected nil chunks for blank content, got %d", len(got))
	}
}

func TestPatternChunksHCLBlocks(t *testing.T) {
	c := New(512, 50)
	chunks := c.Chunk(sampleHCL, "main.tf", nil)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	first := chunks[0]
	if first.Strategy != domain.StrategyPattern {
		t.Errorf("strategy = %q, want %q", first.Strategy, domain.StrategyPattern)
	}
	if first.BlockType != "resource" {
		t.Errorf("block type = %q, want resource", first.BlockType)
	}
	if first.BlockName != "aws_s3_bucket.assets" {
		t.Errorf("block name = %q, want aws_s3_bucket.assets", first.BlockName)
	}
	if first.StartLine != 1 || first.EndLine != 6 {
		t.Errorf("span = %d..%d, want 1..6", first.StartLine, first.EndLine)
	}

	second := chunks[1]
	if second.BlockType != "variable" || second.BlockName != "region" {
		t.Errorf("second block = %s %q, want variable region", second.BlockType, second.BlockName)
	}
	if second.StartLine != 8 {
		t.Errorf("second start line = %d, want 8", second.StartLine)
	}

	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
	}
}

func TestPatternEmitsUnclosedBlock(t *testing.T) {
	content := "resource \"aws_instance\" \"web\" {\n  ami = \"ami-123\""
	c := New(512, 0)
	chunks := c.Chunk(content, "broken.tf", nil)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 truncated chunk, got %d", len(chunks))
	}
	if chunks[0].BlockType != "resource" {
		t.Errorf("block type = %q, want resource", chunks[0].BlockType)
	}
	if chunks[0].EndLine != 2 {
		t.Errorf("end line = %d, want 2", chunks[0].EndLine)
	}
}

func TestStructuralChunksPreferred(t *testing.T) {
	parsed := &domain.ParsedFile{Blocks: []domain.BlockSpan{
		{Type: "resource", Labels: []string{"aws_s3_bucket", "assets"}, StartLine: 1, EndLine: 6},
		{Type: "variable", Labels: []string{"region"}, StartLine: 8, EndLine: 11},
		{Type: "comment", StartLine: 1, EndLine: 1}, // unrecognized, skipped
	}}

	c := New(512, 50)
	chunks := c.Chunk(sampleHCL, "main.tf", parsed)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if ch.Strategy != domain.StrategyStructural {
			t.Errorf("strategy = %q, want %q", ch.Strategy, domain.StrategyStructural)
		}
	}
	if chunks[0].BlockName != "aws_s3_bucket.assets" {
		t.Errorf("block name = %q", chunks[0].BlockName)
	}
}

func TestLineWindowFallbackCoversAllLines(t *testing.T) {
	lines := make([]string, 12)
	for i := range lines {
		lines[i] = "plain configuration text line"
	}
	content := strings.Join(lines, "\n")

	c := New(10, 0)
	chunks := c.Chunk(content, "notes.txt", nil)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple line windows, got %d", len(chunks))
	}
	if chunks[0].StartLine != 1 {
		t.Errorf("first window starts at %d, want 1", chunks[0].StartLine)
	}
	if last := chunks[len(chunks)-1]; last.EndLine != 12 {
		t.Errorf("last window ends at %d, want 12", last.EndLine)
	}
	for i, ch := range chunks {
		if ch.Strategy != domain.StrategyLineWindow {
			t.Fatalf("strategy = %q, want %q", ch.Strategy, domain.StrategyLineWindow)
		}
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
		if i > 0 && ch.StartLine > chunks[i-1].EndLine+1 {
			t.Errorf("gap between window %d (ends %d) and %d (starts %d)",
				i-1, chunks[i-1].EndLine, i, ch.StartLine)
		}
	}
}

func TestLineWindowOverlap(t *testing.T) {
	lines := make([]string, 8)
	for i := range lines {
		lines[i] = "aaaaaaaaaaaaaaaaaaaaaaaa" // 24 chars, 6 tokens
	}
	content := strings.Join(lines, "\n")

	c := New(12, 6)
	chunks := c.Chunk(content, "notes.txt", nil)

	if len(chunks) < 3 {
		t.Fatalf("expected several overlapping windows, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartLine > chunks[i-1].EndLine {
			t.Errorf("windows %d and %d do not overlap: %d..%d then %d..%d",
				i-1, i, chunks[i-1].StartLine, chunks[i-1].EndLine, chunks[i].StartLine, chunks[i].EndLine)
		}
	}
}

func TestOversizedBlockIsSplit(t *testing.T) {
	var b strings.Builder
	b.WriteString("resource \"aws_vpc\" \"main\" {\n")
	for i := 0; i < 20; i++ {
		b.WriteString("  cidr_block = \"10.0.0.0/16\"\n")
		b.WriteString("\n")
	}
	b.WriteString("}")

	c := New(20, 0)
	chunks := c.Chunk(b.String(), "vpc.tf", nil)

	if len(chunks) < 2 {
		t.Fatalf("expected oversized block to split, got %d chunks", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
		if ch.TokenCount > c.MaxTokens() && strings.Contains(ch.Content, "\n") {
			t.Errorf("multi-line chunk %d exceeds budget: %d tokens", i, ch.TokenCount)
		}
	}
}

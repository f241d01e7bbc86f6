// Package chunker splits raw source text into semantically bounded chunks.
// Three strategies are tried in priority order: structural (parsed block
// spans), pattern (regex-detected HCL blocks), and a line-window fallback.
// The first strategy yielding at least one chunk wins.
package chunker

import (
	"log/slog"
	"strings"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
)

// Recognized top-level block categories for structural chunking.
var structuralBlockTypes = map[string]bool{
	"resource":  true,
	"variable":  true,
	"output":    true,
	"module":    true,
	"provider":  true,
	"data":      true,
	"locals":    true,
	"terraform": true,
}

// Chunker produces ordered chunk sequences for one file's content.
type Chunker struct {
	maxTokens int
	overlap   int
}

// New creates a chunker with the given token budget and line-window overlap
// (both in estimated tokens).
func New(maxTokens, overlap int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{maxTokens: maxTokens, overlap: overlap}
}

// MaxTokens returns the configured per-chunk token budget.
func (c *Chunker) MaxTokens() int { return c.maxTokens }

// Chunk splits content into ordered chunks. It never fails for well-formed
// UTF-8 text: any internal panic is recovered and the line-window strategy is
// used as the emergency path.
func (c *Chunker) Chunk(content, filePath string, parsed *domain.ParsedFile) (chunks []domain.Chunk) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("chunking panicked, falling back to line windows", "file", filePath, "panic", r)
			chunks = c.finalize(c.lineWindowChunks(content))
		}
	}()

	if strings.TrimSpace(content) == "" {
		return nil
	}

	if parsed != nil {
		if out := c.structuralChunks(content, parsed); len(out) > 0 {
			return c.finalize(out)
		}
	}
	if out := c.patternChunks(content, filePath); len(out) > 0 {
		return c.finalize(out)
	}
	return c.finalize(c.lineWindowChunks(content))
}

// structuralChunks emits one chunk per recognized parsed block span.
func (c *Chunker) structuralChunks(content string, parsed *domain.ParsedFile) []domain.Chunk {
	lines := strings.Split(content, "\n")
	var out []domain.Chunk

	for _, block := range parsed.Blocks {
		if !structuralBlockTypes[block.Type] {
			continue
		}
		start, end := block.StartLine, block.EndLine
		if start < 1 || start > len(lines) {
			continue
		}
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[start-1:end], "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, domain.Chunk{
			Content:    text,
			StartLine:  start,
			EndLine:    end,
			TokenCount: domain.EstimateTokens(text),
			Strategy:   domain.StrategyStructural,
			BlockType:  block.Type,
			BlockName:  strings.Join(block.Labels, "."),
		})
	}
	return out
}

// finalize applies the post-processing invariants: empty chunks are dropped,
// oversized chunks are recursively split, and chunk indices are reassigned
// contiguously from 0.
func (c *Chunker) finalize(chunks []domain.Chunk) []domain.Chunk {
	var out []domain.Chunk
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Content) == "" {
			continue
		}
		out = append(out, c.splitOversized(ch)...)
	}
	for i := range out {
		out[i].Index = i
	}
	return out
}

// splitOversized splits a chunk exceeding the token budget in two at the
// blank-line or closing-brace boundary nearest the midpoint, recursing on
// both halves. A single line is returned as-is regardless of size.
func (c *Chunker) splitOversized(ch domain.Chunk) []domain.Chunk {
	if ch.TokenCount <= c.maxTokens {
		return []domain.Chunk{ch}
	}
	lines := strings.Split(ch.Content, "\n")
	if len(lines) < 2 {
		return []domain.Chunk{ch}
	}

	cut := splitBoundary(lines)
	first := strings.Join(lines[:cut], "\n")
	second := strings.Join(lines[cut:], "\n")

	a := ch
	a.Content = first
	a.EndLine = ch.StartLine + cut - 1
	a.TokenCount = domain.EstimateTokens(first)

	b := ch
	b.Content = second
	b.StartLine = ch.StartLine + cut
	b.TokenCount = domain.EstimateTokens(second)

	var out []domain.Chunk
	if strings.TrimSpace(first) != "" {
		out = append(out, c.splitOversized(a)...)
	}
	if strings.TrimSpace(second) != "" {
		out = append(out, c.splitOversized(b)...)
	}
	if len(out) == 0 {
		return []domain.Chunk{ch}
	}
	return out
}

// splitBoundary picks the cut index (between 1 and len(lines)-1) nearest the
// midpoint, preferring a blank line or a closing-brace line just before it.
func splitBoundary(lines []string) int {
	mid := len(lines) / 2
	best := mid
	bestDist := len(lines)

	for i := 1; i < len(lines); i++ {
		prev := strings.TrimSpace(lines[i-1])
		if prev != "" && prev != "}" {
			continue
		}
		dist := i - mid
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best <= 0 {
		best = 1
	}
	if best >= len(lines) {
		best = len(lines) - 1
	}
	return best
}

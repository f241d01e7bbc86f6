package chunker

import (
	"strings"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
)

// lineWindowChunks splits content into fixed token-budget line windows with a
// small token overlap carried into the next window. Every input line is
// covered by at least one window; overlap is allowed, gaps are not.
func (c *Chunker) lineWindowChunks(content string) []domain.Chunk {
	lines := strings.Split(content, "\n")
	var out []domain.Chunk

	start := 0
	for start < len(lines) {
		end := start
		tokens := 0
		for end < len(lines) {
			lineTokens := domain.EstimateTokens(lines[end])
			if tokens > 0 && tokens+lineTokens > c.maxTokens {
				break
			}
			tokens += lineTokens
			end++
		}
		if end == start {
			end = start + 1 // single line over budget still advances
		}

		text := strings.Join(lines[start:end], "\n")
		out = append(out, domain.Chunk{
			Content:    text,
			StartLine:  start + 1,
			EndLine:    end,
			TokenCount: domain.EstimateTokens(text),
			Strategy:   domain.StrategyLineWindow,
		})

		if end >= len(lines) {
			break
		}
		next := end - c.overlapLines(lines, start, end)
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// overlapLines counts how many trailing window lines add up to the configured
// overlap token budget.
func (c *Chunker) overlapLines(lines []string, start, end int) int {
	if c.overlap == 0 {
		return 0
	}
	n := 0
	tokens := 0
	for i := end - 1; i > start && tokens < c.overlap; i-- {
		tokens += domain.EstimateTokens(lines[i])
		n++
	}
	return n
}

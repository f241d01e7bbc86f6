package chunker

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
)

// blockOpenRe matches an HCL block opener at the start of a line:
// a keyword, optional quoted or bare labels, and an opening brace.
var blockOpenRe = regexp.MustCompile(`^(resource|variable|output|module|provider|data|locals|terraform)\s*((?:"[^"]*"\s*|[\w-]+\s*)*)\{`)

var labelRe = regexp.MustCompile(`"([^"]*)"|([\w-]+)`)

// patternChunks scans lines for block-opening keywords at brace depth zero
// and tracks brace depth to find each block's closing line. A block left open
// at end-of-file is emitted as a best-effort truncated chunk rather than
// dropped.
func (c *Chunker) patternChunks(content, filePath string) []domain.Chunk {
	lines := strings.Split(content, "\n")
	var out []domain.Chunk

	depth := 0
	blockStart := -1 // 0-based index of the current block's opening line
	blockType := ""
	blockName := ""

	emit := func(start, end int, truncated bool) {
		text := strings.Join(lines[start:end+1], "\n")
		if strings.TrimSpace(text) == "" {
			return
		}
		if truncated {
			slog.Warn("unclosed block at end of file, emitting truncated chunk",
				"file", filePath, "block", blockType, "line", start+1)
		}
		out = append(out, domain.Chunk{
			Content:    text,
			StartLine:  start + 1,
			EndLine:    end + 1,
			TokenCount: domain.EstimateTokens(text),
			Strategy:   domain.StrategyPattern,
			BlockType:  blockType,
			BlockName:  blockName,
		})
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if depth == 0 && blockStart < 0 {
			if m := blockOpenRe.FindStringSubmatch(trimmed); m != nil {
				blockStart = i
				blockType = m[1]
				blockName = joinLabels(m[2])
			}
		}

		if blockStart >= 0 {
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			if depth <= 0 {
				emit(blockStart, i, false)
				blockStart = -1
				depth = 0
			}
		}
	}

	if blockStart >= 0 {
		emit(blockStart, len(lines)-1, true)
	}
	return out
}

func joinLabels(raw string) string {
	var labels []string
	for _, m := range labelRe.FindAllStringSubmatch(raw, -1) {
		if m[1] != "" {
			labels = append(labels, m[1])
		} else if m[2] != "" {
			labels = append(labels, m[2])
		}
	}
	return strings.Join(labels, ".")
}

package chunker

import (
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
)

// HCLParser recovers top-level block spans from Terraform/HCL source using
// the hashicorp/hcl syntax parser. It implements port.Parser.
type HCLParser struct{}

// NewHCLParser creates the structural parser.
func NewHCLParser() *HCLParser {
	return &HCLParser{}
}

// Parse returns block spans for HCL content, or (nil, nil) when the content
// is not parseable or carries no recognized blocks. Parse failure is a
// degradation signal, never an error: callers fall back to pattern chunking.
func (p *HCLParser) Parse(filePath, content string) (*domain.ParsedFile, error) {
	if !isHCLPath(filePath) {
		return nil, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL([]byte(content), filePath)
	if diags.HasErrors() || file == nil {
		return nil, nil
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, nil
	}

	var blocks []domain.BlockSpan
	for _, block := range body.Blocks {
		if !structuralBlockTypes[block.Type] {
			continue
		}
		rng := block.Range()
		blocks = append(blocks, domain.BlockSpan{
			Type:      block.Type,
			Labels:    block.Labels,
			StartLine: rng.Start.Line,
			EndLine:   rng.End.Line,
		})
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	return &domain.ParsedFile{Blocks: blocks}, nil
}

func isHCLPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".tf") ||
		strings.HasSuffix(lower, ".hcl") ||
		strings.HasSuffix(lower, ".tfvars")
}

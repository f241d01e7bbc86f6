package domain

// ChunkStrategy identifies which chunking path produced a chunk.
type ChunkStrategy string

const (
	StrategyStructural ChunkStrategy = "structural"
	StrategyPattern    ChunkStrategy = "pattern"
	StrategyLineWindow ChunkStrategy = "line_window"
)

// Chunk is one semantically bounded slice of a source file.
type Chunk struct {
	Content    string        `json:"content"`
	Index      int           `json:"index"`
	StartLine  int           `json:"start_line"` // 1-based, inclusive
	EndLine    int           `json:"end_line"`   // 1-based, inclusive
	TokenCount int           `json:"token_count"`
	Strategy   ChunkStrategy `json:"strategy"`
	BlockType  string        `json:"block_type,omitempty"` // resource, variable, output, ...
	BlockName  string        `json:"block_name,omitempty"` // e.g. aws_instance.web
}

// BlockSpan is a structural parse result: one top-level block and its line span.
type BlockSpan struct {
	Type      string   // resource, variable, output, module, provider, data, locals, terraform
	Labels    []string // e.g. ["aws_instance", "web"]
	StartLine int      // 1-based, inclusive
	EndLine   int      // 1-based, inclusive
}

// ParsedFile carries the block spans recovered by the structural parser.
type ParsedFile struct {
	Blocks []BlockSpan
}

// EstimateTokens approximates the token count of text as len/4. The same
// coarse estimate is used for chunk sizing and for reported counts, so sizing
// decisions and stats stay consistent.
func EstimateTokens(text string) int {
	return len(text) / 4
}

package domain

import "time"

// EmbeddingType distinguishes code-chunk vectors from LLM-summary vectors.
type EmbeddingType string

const (
	EmbeddingTypeCode    EmbeddingType = "code"
	EmbeddingTypeSummary EmbeddingType = "summary"
)

// FileEmbedding is one chunk's vector plus metadata, scoped to a file within
// a repository. Code and summary embeddings for the same logical chunk share
// chunk_index space and are distinguished by Type.
type FileEmbedding struct {
	ID             string        `json:"id"              db:"id"`
	RepositoryID   string        `json:"repository_id"   db:"repository_id"`
	RepositoryName string        `json:"repository_name" db:"-"`
	FilePath       string        `json:"file_path"       db:"file_path"`
	FileName       string        `json:"file_name"       db:"file_name"`
	FileExtension  string        `json:"file_extension"  db:"file_extension"`
	FileSize       int64         `json:"file_size"       db:"file_size"`
	FileHash       string        `json:"file_hash"       db:"file_hash"`
	ChunkIndex     int           `json:"chunk_index"     db:"chunk_index"`
	TotalChunks    int           `json:"total_chunks"    db:"total_chunks"`
	Content        string        `json:"content"         db:"content"`
	Vector         []float32     `json:"-"               db:"embedding_vector"`
	Model          string        `json:"embedding_model" db:"embedding_model"`
	Type           EmbeddingType `json:"embedding_type"  db:"embedding_type"`
	Language       string        `json:"language"        db:"language"`
	TokenCount     int           `json:"tokens_count"    db:"tokens_count"`
	ChunkStrategy  ChunkStrategy `json:"chunk_strategy"  db:"chunk_strategy"`
	CreatedAt      time.Time     `json:"created_at"      db:"created_at"`

	// Summary-only fields; nil for Type == EmbeddingTypeCode.
	Summary *SummaryDetail `json:"summary,omitempty" db:"-"`
}

// SummaryDetail holds the summary-specific columns of a summary embedding.
type SummaryDetail struct {
	Text       string  `json:"text"       db:"summary_text"`
	Confidence float64 `json:"confidence" db:"summary_confidence"`
	Type       string  `json:"type"       db:"summary_type"`
	Model      string  `json:"model"      db:"summarization_model"`
	Metadata   string  `json:"metadata"   db:"processing_metadata"` // JSON blob
}

// Summary is a summarizer result for one chunk, before it is embedded.
type Summary struct {
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // provider heuristic in [0,1]
	Type       string  `json:"type"`       // e.g. "code_summary"
	Model      string  `json:"model"`
	Metadata   string  `json:"metadata"` // JSON blob of processing details
}

// FileUpsert is the unit handed to the vector store: everything needed to
// atomically replace one file's embeddings.
type FileUpsert struct {
	RepositoryName string
	RepositoryURL  string
	RepositoryDesc string
	FilePath       string
	FileName       string
	FileExtension  string
	FileSize       int64
	FileHash       string
	Language       string
	EmbeddingModel string
	Chunks         []Chunk     // code chunks, contiguous indices from 0
	CodeVectors    [][]float32 // one per chunk
	Summaries      []Summary   // may be shorter than Chunks
	SummaryVectors [][]float32 // one per summary
}

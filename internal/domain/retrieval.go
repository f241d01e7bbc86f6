package domain

// SearchHit is a raw vector-store result: the stored embedding row plus its
// cosine similarity to the query vector.
type SearchHit struct {
	Embedding  FileEmbedding `json:"embedding"`
	Similarity float64       `json:"similarity"`
}

// RetrievedDocument is one ranked similarity-search result handed to the
// downstream prompt-construction step. Constructed fresh per query.
type RetrievedDocument struct {
	Content    string        `json:"content"`
	SourceType EmbeddingType `json:"source_type"` // code or summary
	Repository string        `json:"repository"`
	FilePath   string        `json:"file_path"`
	ChunkIndex int           `json:"chunk_index"`
	Language   string        `json:"language"`
	Similarity float64       `json:"similarity"`
}

// RetrievalResult is the ranked document list for one query.
type RetrievalResult struct {
	Query      string              `json:"query"`
	Repository string              `json:"repository,omitempty"`
	Documents  []RetrievedDocument `json:"documents"`
	Err        string              `json:"error,omitempty"` // set for failed branches in multi-repo retrieval
}

// RetrieveOptions controls a retrieval pass.
type RetrieveOptions struct {
	Repository          string   `json:"repository,omitempty"`
	FileExtensions      []string `json:"file_extensions,omitempty"`
	MaxResults          int      `json:"max_results"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
	IncludeSummaries    bool     `json:"include_summaries"`
	IncludeCodeChunks   bool     `json:"include_code_chunks"`
}

package domain

import "time"

// Repository is a named source-code collection whose files have been embedded.
// The name is the stable identity key; rows are created lazily on the first
// upsert for that name.
type Repository struct {
	ID          string    `json:"id"          db:"id"`
	Name        string    `json:"name"        db:"name"`
	URL         string    `json:"url"         db:"url"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at"  db:"created_at"`
}

// RepositoryStats aggregates embedding counts for one repository, or globally
// when Repository is empty.
type RepositoryStats struct {
	Repository        string `json:"repository,omitempty"`
	TotalEmbeddings   int    `json:"total_embeddings"`
	CodeEmbeddings    int    `json:"code_embeddings"`
	SummaryEmbeddings int    `json:"summary_embeddings"`
	UniqueFiles       int    `json:"unique_files"`
	Repositories      int    `json:"repositories,omitempty"`
}

package domain

import "time"

// JobStatus is the lifecycle state of one repository-embedding run. There is
// no transition back to pending; cancelled is reachable only from processing.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// FileError records one file's failure inside an otherwise surviving job.
type FileError struct {
	FilePath string `json:"file_path"`
	Message  string `json:"message"`
}

// ProcessingResult is the in-memory record of one embedding job. Jobs are not
// persisted: a status query after process restart returns not-found.
type ProcessingResult struct {
	JobID               string      `json:"job_id"`
	Repository          string      `json:"repository"`
	Status              JobStatus   `json:"status"`
	FilesDiscovered     int         `json:"files_discovered"`
	FilesProcessed      int         `json:"files_processed"`
	ChunksCreated       int         `json:"chunks_created"`
	EmbeddingsGenerated int         `json:"embeddings_generated"`
	Errors              []FileError `json:"errors"`
	StartedAt           time.Time   `json:"started_at"`
	CompletedAt         time.Time   `json:"completed_at,omitzero"`
	DurationMS          int64       `json:"duration_ms"`
}

// Done reports whether the job has reached a terminal state.
func (r *ProcessingResult) Done() bool {
	switch r.Status {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// EmbedRequest is the inbound orchestration trigger.
type EmbedRequest struct {
	RepositoryName string   `json:"repository_name"`
	RepositoryPath string   `json:"repository_path"`
	RepositoryURL  string   `json:"repository_url,omitempty"`
	Description    string   `json:"repository_description,omitempty"`
	FileExtensions []string `json:"file_extensions,omitempty"`
	MaxFiles       int      `json:"max_files,omitempty"`
	Reindex        bool     `json:"reindex,omitempty"`
	Recursive      bool     `json:"recursive"`
}

package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
)

// JobTracker manages embedding jobs in memory. It is an explicitly
// constructed instance passed through constructors, never a package global.
// Jobs do not survive a process restart; status queries then return
// not-found, which is a documented limitation of the ephemeral store.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*domain.ProcessingResult
	subs map[string][]chan domain.ProcessingResult
}

// NewJobTracker creates a new job tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{
		jobs: make(map[string]*domain.ProcessingResult),
		subs: make(map[string][]chan domain.ProcessingResult),
	}
}

// Create registers a new pending job and returns its snapshot.
func (t *JobTracker) Create(repository string) domain.ProcessingResult {
	job := &domain.ProcessingResult{
		JobID:      uuid.NewString(),
		Repository: repository,
		Status:     domain.JobPending,
		Errors:     []domain.FileError{},
		StartedAt:  time.Now(),
	}
	t.mu.Lock()
	t.jobs[job.JobID] = job
	t.mu.Unlock()
	return *job
}

// Start moves a pending job to processing. Any other source state is left
// untouched: there is no transition back into the pipeline.
func (t *JobTracker) Start(jobID string) {
	t.update(jobID, func(job *domain.ProcessingResult) {
		if job.Status == domain.JobPending {
			job.Status = domain.JobProcessing
		}
	})
}

// Cancel marks a processing job cancelled. Cancellation is cooperative:
// already-dispatched file tasks run to completion, new ones do not start.
// It reports whether the transition happened.
func (t *JobTracker) Cancel(jobID string) bool {
	cancelled := false
	t.update(jobID, func(job *domain.ProcessingResult) {
		if job.Status == domain.JobProcessing {
			job.Status = domain.JobCancelled
			cancelled = true
		}
	})
	return cancelled
}

// IsCancelled reports whether the job has been cancelled.
func (t *JobTracker) IsCancelled(jobID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[jobID]
	return ok && job.Status == domain.JobCancelled
}

// SetDiscovered records the discovered file count.
func (t *JobTracker) SetDiscovered(jobID string, n int) {
	t.update(jobID, func(job *domain.ProcessingResult) {
		job.FilesDiscovered = n
	})
}

// AddFileResult merges one successfully processed file into the aggregate.
func (t *JobTracker) AddFileResult(jobID string, chunks, embeddings int) {
	t.update(jobID, func(job *domain.ProcessingResult) {
		job.FilesProcessed++
		job.ChunksCreated += chunks
		job.EmbeddingsGenerated += embeddings
	})
}

// AddFileError records one file's failure without affecting job status.
func (t *JobTracker) AddFileError(jobID, filePath string, err error) {
	t.update(jobID, func(job *domain.ProcessingResult) {
		job.Errors = append(job.Errors, domain.FileError{FilePath: filePath, Message: err.Error()})
	})
}

// Finish moves the job into a terminal state unless it was already cancelled,
// and stamps completion time and duration.
func (t *JobTracker) Finish(jobID string, status domain.JobStatus) {
	t.update(jobID, func(job *domain.ProcessingResult) {
		if job.Status == domain.JobProcessing {
			job.Status = status
		}
		job.CompletedAt = time.Now()
		job.DurationMS = job.CompletedAt.Sub(job.StartedAt).Milliseconds()
	})
}

// Get returns a snapshot of a job.
func (t *JobTracker) Get(jobID string) (domain.ProcessingResult, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[jobID]
	if !ok {
		return domain.ProcessingResult{}, false
	}
	return snapshot(job), true
}

// Subscribe returns a channel that receives job snapshots on every update.
func (t *JobTracker) Subscribe(jobID string) chan domain.ProcessingResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan domain.ProcessingResult, 16)
	t.subs[jobID] = append(t.subs[jobID], ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (t *JobTracker) Unsubscribe(jobID string, ch chan domain.ProcessingResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	subs := t.subs[jobID]
	for i, s := range subs {
		if s == ch {
			t.subs[jobID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	close(ch)
}

// update applies fn under the lock and notifies subscribers with a snapshot.
func (t *JobTracker) update(jobID string, fn func(*domain.ProcessingResult)) {
	t.mu.Lock()
	job, ok := t.jobs[jobID]
	if !ok {
		t.mu.Unlock()
		return
	}
	fn(job)
	snap := snapshot(job)
	subs := append([]chan domain.ProcessingResult(nil), t.subs[jobID]...)
	t.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default: // slow subscriber drops updates, never blocks the job
		}
	}
}

func snapshot(job *domain.ProcessingResult) domain.ProcessingResult {
	snap := *job
	snap.Errors = append([]domain.FileError(nil), job.Errors...)
	return snap
}

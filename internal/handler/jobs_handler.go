package handler

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/port"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/service"
)

// JobsHandler exposes job status, streaming and cancellation.
type JobsHandler struct {
	indexer *service.IndexerService
	tracker *service.JobTracker
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(indexer *service.IndexerService) *JobsHandler {
	return &JobsHandler{indexer: indexer, tracker: indexer.Tracker()}
}

// Register sets up job routes.
func (h *JobsHandler) Register(router fiber.Router) {
	jobs := router.Group("/jobs")
	jobs.Get("/:id", h.GetJob)
	jobs.Get("/:id/stream", h.StreamJob)
	jobs.Post("/:id/cancel", h.CancelJob)
}

// GetJob returns the current snapshot of a job.
func (h *JobsHandler) GetJob(c fiber.Ctx) error {
	job, ok := h.tracker.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	return c.JSON(job)
}

// CancelJob requests cooperative cancellation of a processing job.
func (h *JobsHandler) CancelJob(c fiber.Ctx) error {
	jobID := c.Params("id")
	if err := h.indexer.Cancel(jobID); err != nil {
		if errors.Is(err, port.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	job, _ := h.tracker.Get(jobID)
	return c.JSON(job)
}

// StreamJob streams job progress snapshots via SSE until the job reaches a
// terminal state.
func (h *JobsHandler) StreamJob(c fiber.Ctx) error {
	jobID := c.Params("id")
	job, ok := h.tracker.Get(jobID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	ch := h.tracker.Subscribe(jobID)

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer h.tracker.Unsubscribe(jobID, ch)

		writeJobEvent(w, job)
		if job.Done() {
			return
		}

		heartbeat := time.NewTicker(15 * time.Second)
		defer heartbeat.Stop()

		for {
			select {
			case snap, open := <-ch:
				if !open {
					return
				}
				writeJobEvent(w, snap)
				if snap.Done() {
					return
				}
			case <-heartbeat.C:
				fmt.Fprintf(w, ": heartbeat\n\n")
				w.Flush()
			}
		}
	})
}

func writeJobEvent(w *bufio.Writer, job domain.ProcessingResult) {
	data, _ := json.Marshal(job)
	fmt.Fprintf(w, "event: job_status\ndata: %s\n\n", string(data))
	w.Flush()
}

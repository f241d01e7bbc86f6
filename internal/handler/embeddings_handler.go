package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/port"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/service"
)

// EmbeddingsHandler exposes the orchestration-trigger and embedding
// management endpoints.
type EmbeddingsHandler struct {
	indexer *service.IndexerService
	store   port.VectorStore
}

// NewEmbeddingsHandler creates a new embeddings handler.
func NewEmbeddingsHandler(indexer *service.IndexerService, store port.VectorStore) *EmbeddingsHandler {
	return &EmbeddingsHandler{indexer: indexer, store: store}
}

// Register sets up embedding routes.
func (h *EmbeddingsHandler) Register(router fiber.Router) {
	emb := router.Group("/embeddings")
	emb.Post("/repositories", h.EmbedRepository)
	emb.Get("/repositories", h.ListRepositories)
	emb.Delete("/repositories/:repository", h.DeleteRepository)
	emb.Delete("/repositories/:repository/file", h.DeleteFile)
	emb.Get("/stats", h.Stats)
	emb.Get("/stats/:repository", h.Stats)
}

// EmbedRepository triggers a repository embedding job. By default the job
// runs in the background and the pending snapshot is returned; with
// ?wait=true the full run executes synchronously.
func (h *EmbeddingsHandler) EmbedRepository(c fiber.Ctx) error {
	var req domain.EmbedRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.RepositoryName == "" || req.RepositoryPath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "repository_name and repository_path are required"})
	}

	if c.Query("wait") == "true" {
		result, err := h.indexer.EmbedRepository(c.Context(), req)
		if err != nil {
			status := fiber.StatusInternalServerError
			if errors.Is(err, port.ErrInvalidPath) {
				status = fiber.StatusBadRequest
			}
			return c.Status(status).JSON(fiber.Map{"error": err.Error(), "job": result})
		}
		return c.JSON(result)
	}

	job := h.indexer.EmbedRepositoryAsync(req)
	return c.Status(fiber.StatusAccepted).JSON(job)
}

// ListRepositories returns all embedded repositories.
func (h *EmbeddingsHandler) ListRepositories(c fiber.Ctx) error {
	repos, err := h.store.ListRepositories(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"repositories": repos})
}

// DeleteRepository removes every embedding and the repository row.
func (h *EmbeddingsHandler) DeleteRepository(c fiber.Ctx) error {
	name := c.Params("repository")
	if err := h.store.DeleteRepositoryEmbeddings(c.Context(), name); err != nil {
		if errors.Is(err, port.ErrRepositoryNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "repository not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// DeleteFile removes all embeddings for one file within a repository.
func (h *EmbeddingsHandler) DeleteFile(c fiber.Ctx) error {
	name := c.Params("repository")
	path := c.Query("path")
	if path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path query parameter is required"})
	}
	if err := h.store.DeleteFileEmbeddings(c.Context(), name, path); err != nil {
		if errors.Is(err, port.ErrRepositoryNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "repository not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Stats returns aggregate embedding counts, per repository or global.
func (h *EmbeddingsHandler) Stats(c fiber.Ctx) error {
	stats, err := h.store.GetRepositoryStats(c.Context(), c.Params("repository"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(stats)
}

package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/service"
)

// SearchRequest is the similarity-search request body. Repositories with more
// than one entry fans the search out per repository.
type SearchRequest struct {
	Query               string   `json:"query"`
	Repository          string   `json:"repository"`
	Repositories        []string `json:"repositories"`
	FileExtensions      []string `json:"file_extensions"`
	MaxResults          int      `json:"max_results"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
	IncludeSummaries    bool     `json:"include_summaries"`
	IncludeCodeChunks   bool     `json:"include_code_chunks"`
}

// SearchHandler exposes semantic retrieval over stored embeddings.
type SearchHandler struct {
	retriever *service.RetrieverService
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(retriever *service.RetrieverService) *SearchHandler {
	return &SearchHandler{retriever: retriever}
}

// Register sets up search routes.
func (h *SearchHandler) Register(router fiber.Router) {
	router.Post("/search", h.Search)
}

// Search embeds the query and returns ranked matches. With a repositories
// list it runs one isolated search per repository and returns a keyed map.
func (h *SearchHandler) Search(c fiber.Ctx) error {
	var req SearchRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query is required"})
	}

	opts := domain.RetrieveOptions{
		Repository:          req.Repository,
		FileExtensions:      req.FileExtensions,
		MaxResults:          req.MaxResults,
		SimilarityThreshold: req.SimilarityThreshold,
		IncludeSummaries:    req.IncludeSummaries,
		IncludeCodeChunks:   req.IncludeCodeChunks,
	}

	if len(req.Repositories) > 0 {
		results, err := h.retriever.RetrieveMulti(c.Context(), req.Query, req.Repositories, opts)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"query": req.Query, "results": results})
	}

	result, err := h.retriever.Retrieve(c.Context(), req.Query, opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

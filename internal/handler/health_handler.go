package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/monitor"
)

// HealthHandler exposes the health snapshot and recent errors.
type HealthHandler struct {
	monitor *monitor.Service
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(mon *monitor.Service) *HealthHandler {
	return &HealthHandler{monitor: mon}
}

// Register sets up health routes.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/health/errors", h.RecentErrors)
}

// Health returns the computed health status with operation stats.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	status := h.monitor.GetHealthStatus()
	code := fiber.StatusOK
	if status.Status == monitor.StateCritical {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(status)
}

// RecentErrors returns the newest captured errors, default 20.
func (h *HealthHandler) RecentErrors(c fiber.Ctx) error {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	return c.JSON(fiber.Map{"errors": h.monitor.GetRecentErrors(limit)})
}

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/weathermetrics/internal/models"
)

// Health handles health check requests
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   h.info.Version,
		Storage:   h.info.Storage,
	})
}

// NotFound handles 404 errors
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: "Route not found",
		Code:  "NOT_FOUND",
		Path:  c.Path(),
	})
}

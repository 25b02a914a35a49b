package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/weathermetrics/internal/models"
)

// RecordReading handles reading ingest. The body must be sent as
// application/json.
func (h *Handler) RecordReading(c *fiber.Ctx) error {
	var req models.ReadingRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidRequest(c, "Failed to parse request body: "+err.Error())
	}

	if _, err := h.readings.RecordReading(c.UserContext(), &req); err != nil {
		return h.writeError(c, err)
	}

	return c.SendString("Success")
}

// ListReadings returns stored readings, optionally restricted to sensorId values
func (h *Handler) ListReadings(c *fiber.Ctx) error {
	sensorIDs := queryList(c, "sensorId")

	readings, err := h.readings.ListReadings(c.UserContext(), sensorIDs)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(models.ReadingsResponse{WeatherMetrics: readings})
}

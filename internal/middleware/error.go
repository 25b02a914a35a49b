package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/models"
)

// ErrorHandler returns the Fiber error handler. It covers errors that escape
// the handlers: unknown methods, body limit violations and recovered panics.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := err.Error()

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		logger.Error("Request error",
			"path", c.Path(),
			"method", c.Method(),
			"status", code,
			"error", err,
		)

		resp := models.ErrorResponse{Error: message, Code: "ERROR"}
		if code >= fiber.StatusInternalServerError {
			resp.Error = "Internal issue: " + message
			resp.Code = "INTERNAL_ERROR"
		}

		return c.Status(code).JSON(resp)
	}
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/weathermetrics/internal/models"
	"github.com/soltixdb/weathermetrics/internal/services"
)

const (
	codeInvalidRequest = "INVALID_REQUEST"

	internalMessagePrefix = "Internal issue: "
)

// writeError maps a service error onto its HTTP response. Validation failures
// are returned as a bare list of messages.
func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	svcErr, ok := services.AsServiceError(err)
	if !ok {
		svcErr = services.NewInternalError(err)
	}

	switch svcErr.Code {
	case services.CodeValidation:
		return c.Status(fiber.StatusBadRequest).JSON(svcErr.Details)
	case services.CodeInvalidArgument:
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: svcErr.Message,
			Code:  svcErr.Code,
		})
	default:
		h.logger.Error("Request failed",
			"path", c.Path(),
			"method", c.Method(),
			"error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: internalMessagePrefix + svcErr.Message,
			Code:  services.CodeInternal,
		})
	}
}

func invalidRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: message,
		Code:  codeInvalidRequest,
	})
}

package handlers

import (
	"log/slog"

	"github.com/echotune/echotune-backend/internal/apperr"
	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// respondError maps a service error onto an HTTP status and the standard
// error envelope. Internal errors are logged and masked.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(status).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.Status(status).JSON(dto.ErrorResponse{
		Error:   true,
		Code:    apperr.CodeOf(err),
		Message: apperr.MessageOf(err),
	})
}

func statusFor(err error) int {
	// A few codes carry HTTP semantics their kind alone does not.
	switch apperr.CodeOf(err) {
	case "invalid_credentials":
		return fiber.StatusUnauthorized
	case "forbidden", "not_entitled", "role_not_allowed", "account_inactive", "mock_not_allowed":
		return fiber.StatusForbidden
	}

	switch apperr.KindOf(err) {
	case apperr.Validation:
		return fiber.StatusBadRequest
	case apperr.NotFound:
		return fiber.StatusNotFound
	case apperr.Conflict:
		return fiber.StatusConflict
	case apperr.State:
		return fiber.StatusUnprocessableEntity
	case apperr.Unavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func codeOf(err error) string {
	return apperr.CodeOf(err)
}

func badParam(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: "Invalid request body",
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}

package handlers

import (
	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/middleware"
	"github.com/echotune/echotune-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type LibraryHandler struct {
	libraryService *services.LibraryService
}

func NewLibraryHandler(libraryService *services.LibraryService) *LibraryHandler {
	return &LibraryHandler{libraryService: libraryService}
}

func (h *LibraryHandler) AddFavorite(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "invalid user id")
	}

	var req dto.AddFavoriteRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.libraryService.AddFavorite(c.Context(), caller, userID, &req); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "added to favorites"})
}

func (h *LibraryHandler) RemoveFavorite(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "invalid user id")
	}
	assetID, err := uuid.Parse(c.Params("asset_id"))
	if err != nil {
		return badParam(c, "invalid asset id")
	}

	if err := h.libraryService.RemoveFavorite(c.Context(), caller, userID, c.Params("asset_type"), assetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "removed from favorites"})
}

func (h *LibraryHandler) ListFavorites(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "invalid user id")
	}

	resp, err := h.libraryService.ListFavorites(c.Context(), caller, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *LibraryHandler) ListPurchases(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "invalid user id")
	}

	resp, err := h.libraryService.ListPurchases(c.Context(), caller, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *LibraryHandler) Summary(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "invalid user id")
	}

	resp, err := h.libraryService.Summary(c.Context(), caller, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

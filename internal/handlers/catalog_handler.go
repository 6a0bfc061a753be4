package handlers

import (
	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/middleware"
	"github.com/echotune/echotune-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) CreateSong(c *fiber.Ctx) error {
	owner, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateSongRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	item, err := h.catalogService.CreateSong(c.Context(), owner, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *CatalogHandler) CreateContent(c *fiber.Ctx) error {
	owner, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateContentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	item, err := h.catalogService.CreateContent(c.Context(), owner, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *CatalogHandler) List(c *fiber.Ctx) error {
	resp, err := h.catalogService.List(c.Context(),
		c.Params("asset_type"),
		c.Query("search"),
		c.QueryInt("page", 1),
		c.QueryInt("limit", 20),
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *CatalogHandler) Get(c *fiber.Ctx) error {
	assetID, err := uuid.Parse(c.Params("asset_id"))
	if err != nil {
		return badParam(c, "invalid asset id")
	}

	item, err := h.catalogService.Get(c.Context(), c.Params("asset_type"), assetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

package handlers

import (
	"github.com/echotune/echotune-backend/internal/middleware"
	"github.com/echotune/echotune-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type OwnerHandler struct {
	ownerService   *services.OwnerService
	catalogService *services.CatalogService
}

func NewOwnerHandler(ownerService *services.OwnerService, catalogService *services.CatalogService) *OwnerHandler {
	return &OwnerHandler{
		ownerService:   ownerService,
		catalogService: catalogService,
	}
}

func (h *OwnerHandler) ownerID(c *fiber.Ctx, caller services.Principal) (uuid.UUID, error) {
	if param := c.Params("id"); param != "" {
		return uuid.Parse(param)
	}
	return caller.ID, nil
}

func (h *OwnerHandler) ListSales(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	ownerID, err := h.ownerID(c, caller)
	if err != nil {
		return badParam(c, "invalid owner id")
	}

	resp, err := h.ownerService.ListSales(c.Context(), caller, ownerID,
		c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *OwnerHandler) Earnings(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	ownerID, err := h.ownerID(c, caller)
	if err != nil {
		return badParam(c, "invalid owner id")
	}

	resp, err := h.ownerService.Earnings(c.Context(), caller, ownerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *OwnerHandler) ListAssets(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	ownerID, err := h.ownerID(c, caller)
	if err != nil {
		return badParam(c, "invalid owner id")
	}
	if !caller.Can(ownerID) {
		return respondError(c, services.ErrForbidden)
	}

	items, err := h.catalogService.ListByOwner(c.Context(), ownerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"items": items})
}

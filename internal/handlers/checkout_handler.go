package handlers

import (
	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/middleware"
	"github.com/echotune/echotune-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CheckoutHandler struct {
	checkoutService    *services.CheckoutService
	entitlementService *services.EntitlementService
}

func NewCheckoutHandler(checkoutService *services.CheckoutService, entitlementService *services.EntitlementService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService:    checkoutService,
		entitlementService: entitlementService,
	}
}

func (h *CheckoutHandler) StartCheckout(c *fiber.Ctx) error {
	buyer, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.StartCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.checkoutService.StartCheckout(c.Context(), buyer, &req)
	if err != nil {
		return respondError(c, err)
	}
	if resp.AlreadyPurchased {
		return c.JSON(resp)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *CheckoutHandler) ConfirmCheckout(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ConfirmCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.PurchaseID == "" {
		req.PurchaseID = c.Params("id")
	}

	resp, err := h.checkoutService.ConfirmCheckout(c.Context(), caller, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *CheckoutHandler) GetPurchase(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	purchaseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "invalid purchase id")
	}

	resp, err := h.checkoutService.GetPurchase(c.Context(), caller, purchaseID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// CheckAccess answers the entitlement question without side effects.
func (h *CheckoutHandler) CheckAccess(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	assetID, err := uuid.Parse(c.Params("asset_id"))
	if err != nil {
		return badParam(c, "invalid asset id")
	}

	resp, err := h.entitlementService.CanAccess(c.Context(), caller, c.Params("asset_type"), assetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Download is the entitlement gate in front of the media link.
func (h *CheckoutHandler) Download(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	assetID, err := uuid.Parse(c.Params("asset_id"))
	if err != nil {
		return badParam(c, "invalid asset id")
	}

	resp, err := h.entitlementService.DownloadLink(c.Context(), caller, c.Params("asset_type"), assetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

package handlers

import (
	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/middleware"
	"github.com/echotune/echotune-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PiracyHandler struct {
	piracyService *services.PiracyService
}

func NewPiracyHandler(piracyService *services.PiracyService) *PiracyHandler {
	return &PiracyHandler{piracyService: piracyService}
}

func (h *PiracyHandler) CreateComplaint(c *fiber.Ctx) error {
	reporter, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.piracyService.CreateComplaint(c.Context(), reporter, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *PiracyHandler) ListMyComplaints(c *fiber.Ctx) error {
	reporter, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}

	items, err := h.piracyService.ListMyComplaints(c.Context(), reporter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"items": items})
}

func (h *PiracyHandler) GetComplaint(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	complaintID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "invalid complaint id")
	}

	resp, err := h.piracyService.GetComplaint(c.Context(), caller, complaintID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// ListComplaints is admin-only, mounted behind AdminRequired.
func (h *PiracyHandler) ListComplaints(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	items, total, err := h.piracyService.ListComplaints(c.Context(), c.Query("status"), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"items": items, "total": total, "limit": limit, "offset": offset})
}

func (h *PiracyHandler) ActionComplaint(c *fiber.Ctx) error {
	complaintID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "invalid complaint id")
	}

	var req dto.ActionComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.piracyService.ActionComplaint(c.Context(), complaintID, &req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "complaint updated"})
}

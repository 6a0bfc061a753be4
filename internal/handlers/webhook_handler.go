package handlers

import (
	"log/slog"

	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/payment"
	"github.com/echotune/echotune-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	checkoutService *services.CheckoutService
	webhookSecret   string
}

func NewWebhookHandler(checkoutService *services.CheckoutService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		checkoutService: checkoutService,
		webhookSecret:   webhookSecret,
	}
}

// HandleStripe verifies the event signature and settles the referenced
// purchase. Repeated deliveries of the same event are harmless.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	if h.webhookSecret == "" {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Webhooks not configured",
		})
	}

	event, err := payment.ParseWebhookEvent(c.Body(), c.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		slog.Warn("webhook signature verification failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook payload",
		})
	}

	// Event types the checkout engine does not care about parse to nil.
	if event == nil {
		return c.JSON(fiber.Map{"received": true})
	}

	if err := h.checkoutService.ConfirmFromWebhook(c.Context(), event); err != nil {
		slog.Error("webhook processing failed", "purchase_id", event.PurchaseID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process webhook event",
		})
	}

	slog.Info("webhook processed", "purchase_id", event.PurchaseID, "session_ref", event.SessionRef)
	return c.JSON(fiber.Map{"received": true})
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jalstore/storefront/internal/sms"
)

// RegisterWebhookRoutes wires SMS provider callbacks.
func RegisterWebhookRoutes(r fiber.Router, h *sms.WebhookHandler) {
	r.Post("/webhooks/sms/msg91", h.MSG91)
}

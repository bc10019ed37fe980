package sms

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const webhookSecretHeader = "X-Webhook-Secret"

// WebhookHandler receives delivery reports from the SMS provider.
type WebhookHandler struct {
	secret string
	logger *slog.Logger
}

// NewWebhookHandler constructs a delivery report handler guarded by secret.
func NewWebhookHandler(secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{secret: secret, logger: logger}
}

// MSG91 logs an MSG91 delivery report. Reports are always acknowledged with
// 200 once authenticated so the provider stops retrying.
func (h *WebhookHandler) MSG91(c *fiber.Ctx) error {
	incoming := c.Get(webhookSecretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(incoming), []byte(h.secret)) != 1 {
		h.logger.Warn("msg91 webhook unauthorized", slog.String("ip", c.IP()))
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"ok": false})
	}

	var event map[string]any
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		h.logger.Warn("msg91 webhook undecodable payload", slog.Any("error", err))
		return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true})
	}

	h.logger.Info("msg91 webhook event",
		slog.Any("request_id", event["request_id"]),
		slog.Any("number", event["number"]),
		slog.Any("status", event["status"]),
		slog.Any("desc", event["desc"]),
	)
	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true})
}

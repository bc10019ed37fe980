package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jalstore/storefront/internal/orders"
)

// RegisterOrderRoutes wires order endpoints. idempotency may be nil.
func RegisterOrderRoutes(r fiber.Router, h *orders.Handler, protect, admin, idempotency fiber.Handler) {
	group := r.Group("/orders", protect)
	if idempotency != nil {
		group.Post("/", idempotency, h.Create)
	} else {
		group.Post("/", h.Create)
	}
	group.Get("/my-orders", h.Mine)
	group.Get("/", admin, h.List)
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jalstore/storefront/internal/catalog"
)

// RegisterCatalogRoutes wires product endpoints. Writes require admin.
func RegisterCatalogRoutes(r fiber.Router, h *catalog.Handler, protect, admin fiber.Handler) {
	group := r.Group("/products")
	group.Get("/", h.List)
	group.Post("/", protect, admin, h.Create)
	group.Delete("/:id", protect, admin, h.Delete)
}

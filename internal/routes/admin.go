package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jalstore/storefront/internal/identity"
)

// RegisterAdminRoutes wires admin-only views.
func RegisterAdminRoutes(r fiber.Router, ids *identity.Handler, protect, admin fiber.Handler) {
	group := r.Group("/admin", protect, admin)
	group.Get("/users", ids.List)
}

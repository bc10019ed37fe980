package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jalstore/storefront/internal/auth"
	"github.com/jalstore/storefront/internal/identity"
)

// RegisterAuthRoutes wires the phone OTP login and profile endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, ids *identity.Handler, rateLimiter, protect fiber.Handler) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/otp/request", rateLimiter, h.RequestOTP)
	} else {
		group.Post("/otp/request", h.RequestOTP)
	}
	group.Post("/otp/verify", h.VerifyOTP)
	group.Get("/me", protect, ids.Me)
}

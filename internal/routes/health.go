package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	statusOK       = "ok"
	statusDisabled = "disabled"
)

// RegisterHealthRoutes adds a readiness endpoint reporting each backend.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus, redisStatus, mongoStatus := statusDisabled, statusDisabled, statusDisabled

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			dbStatus = probe(d.DB.Ping(ctx))
		}
		if d.Cache != nil {
			redisStatus = probe(d.Cache.Ping(ctx).Err())
		}
		if d.Mongo != nil {
			mongoStatus = probe(d.Mongo.Client().Ping(ctx, nil))
		}

		status := http.StatusOK
		for _, s := range []string{dbStatus, redisStatus, mongoStatus} {
			if s != statusOK && s != statusDisabled {
				status = http.StatusServiceUnavailable
			}
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus, "mongo": mongoStatus},
			"otp_store": d.Cfg.OTP.Store,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

// probe reports "ok" or "unavailable" without exposing driver errors.
func probe(err error) string {
	if err != nil {
		return "unavailable"
	}
	return statusOK
}

package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jalstore/storefront/internal/auth"
	"github.com/jalstore/storefront/internal/catalog"
	"github.com/jalstore/storefront/internal/config"
	"github.com/jalstore/storefront/internal/identity"
	"github.com/jalstore/storefront/internal/middleware"
	"github.com/jalstore/storefront/internal/orders"
	"github.com/jalstore/storefront/internal/otp"
	"github.com/jalstore/storefront/internal/sms"
)

// Deps aggregates shared dependencies required to wire routes. Any backend
// may be nil; repositories then fall back to memory.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Mongo    *mongo.Database
	Logger   *slog.Logger
	OTPStore otp.Store
	Sender   sms.Sender
	// Users overrides the identity repository chosen from DB.
	Users identity.Repository
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() && d.DB == nil {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
	}
	if d.OTPStore == nil {
		return fmt.Errorf("otp store is required")
	}
	if d.Sender == nil {
		d.Sender = sms.New(d.Cfg.SMS, d.Logger)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(cors.New())

	RegisterHealthRoutes(app, d)

	var (
		identityRepo identity.Repository
		productRepo  catalog.Repository
		orderRepo    orders.Repository
	)
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
		productRepo = catalog.NewPostgresRepository(d.DB)
		orderRepo = orders.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
		productRepo = catalog.NewMemoryRepository()
		orderRepo = orders.NewMemoryRepository()
	}
	if d.Users != nil {
		identityRepo = d.Users
	}

	identitySvc := identity.NewService(identityRepo)
	catalogSvc := catalog.NewService(productRepo)
	orderSvc := orders.NewService(orderRepo, catalogSvc, identitySvc)
	issuer := auth.NewIssuer(d.Cfg.JWTSecret, d.Cfg.AppName)
	otpSvc := otp.NewService(d.OTPStore, d.Sender, identitySvc, issuer, d.Logger, otp.Options{
		Brand:       d.Cfg.OTP.Brand,
		CountryCode: d.Cfg.OTP.CountryCode,
		MaxAttempts: d.Cfg.OTP.MaxAttempts,
		Debug:       d.Cfg.OTP.Debug,
	})

	authHandler := auth.NewHandler(otpSvc, d.Logger)
	identityHandler := identity.NewHandler(identitySvc)
	catalogHandler := catalog.NewHandler(catalogSvc)
	orderHandler := orders.NewHandler(orderSvc)
	webhookHandler := sms.NewWebhookHandler(d.Cfg.SMS.WebhookSecret, d.Logger)

	protect := middleware.Authenticate(issuer, identityRepo)
	admin := middleware.RequireRole(identity.RoleAdmin)
	var idempotency fiber.Handler
	if d.Cache != nil {
		idempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	var rateLimiter fiber.Handler
	if d.Cache != nil {
		rateLimiter = middleware.OTPRequestLimit(d.Cache, d.Cfg.OTP.RequestsPerMinute, otpSvc.Normalize, d.Logger)
	}

	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.LocalRequestID).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAuthRoutes(api, authHandler, identityHandler, rateLimiter, protect)
	RegisterCatalogRoutes(api, catalogHandler, protect, admin)
	RegisterOrderRoutes(api, orderHandler, protect, admin, idempotency)
	RegisterAdminRoutes(api, identityHandler, protect, admin)
	RegisterWebhookRoutes(api, webhookHandler)

	return nil
}

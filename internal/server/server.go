package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jalstore/storefront/internal/config"
	"github.com/jalstore/storefront/internal/middleware"
	"github.com/jalstore/storefront/internal/otp"
	"github.com/jalstore/storefront/internal/routes"
	"github.com/jalstore/storefront/internal/sms"
)

// Server wraps the Fiber application and background jobs.
type Server struct {
	app    *fiber.App
	cfg    config.Config
	reaper *otp.Reaper
	logger *slog.Logger
}

// New builds the HTTP server. db, cache and mongoDB may be nil when the
// configuration does not use them.
func New(ctx context.Context, cfg config.Config, db *pgxpool.Pool, cache *redis.Client, mongoDB *mongo.Database, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	deps := routes.Deps{Cfg: cfg, DB: db, Cache: cache, Mongo: mongoDB, Logger: logger}

	deps.Sender = sms.New(cfg.SMS, logger)
	if err := deps.Sender.Validate(); err != nil {
		if !cfg.IsDev() {
			return nil, fmt.Errorf("sms provider %s: %w", deps.Sender.Name(), err)
		}
		logger.Warn("sms provider not configured, OTP requests will fail",
			slog.String("provider", deps.Sender.Name()),
			slog.Any("error", err),
		)
	}

	store, err := routes.NewOTPStore(ctx, deps)
	if err != nil {
		return nil, err
	}
	deps.OTPStore = store

	users, err := routes.NewIdentityRepository(ctx, deps)
	if err != nil {
		return nil, err
	}
	deps.Users = users

	reaper, err := otp.NewReaper(store, cfg.OTP.ReaperSchedule, logger)
	if err != nil {
		return nil, err
	}

	if err := routes.Setup(app, deps); err != nil {
		return nil, err
	}

	logger.Info("server configured",
		slog.String("env", cfg.Env),
		slog.String("otp_store", cfg.OTP.Store),
		slog.String("sms_provider", deps.Sender.Name()),
		slog.Bool("auth_debug", cfg.OTP.Debug),
	)
	return &Server{app: app, cfg: cfg, reaper: reaper, logger: logger}, nil
}

// App exposes the Fiber application for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts background jobs and the HTTP server.
func (s *Server) Listen() error {
	if s.reaper != nil {
		s.reaper.Start()
	}
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops the reaper and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.reaper != nil {
		s.reaper.Stop(ctx)
	}
	return s.app.ShutdownWithContext(ctx)
}

package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jalstore/storefront/internal/config"
	"github.com/jalstore/storefront/internal/identity"
	"github.com/jalstore/storefront/internal/otp"
)

// NewOTPStore builds the verification store selected by OTP_STORE from the
// backends in d.
func NewOTPStore(ctx context.Context, d Deps) (otp.Store, error) {
	switch d.Cfg.OTP.Store {
	case config.OTPStoreRedis:
		if d.Cache == nil {
			return nil, fmt.Errorf("otp store %q needs redis", d.Cfg.OTP.Store)
		}
		return otp.NewRedisStore(d.Cache), nil
	case config.OTPStorePostgres:
		if d.DB == nil {
			return nil, fmt.Errorf("otp store %q needs postgres", d.Cfg.OTP.Store)
		}
		return otp.NewPostgresStore(d.DB), nil
	case config.OTPStoreMongo:
		if d.Mongo == nil {
			return nil, fmt.Errorf("otp store %q needs mongo", d.Cfg.OTP.Store)
		}
		store := otp.NewMongoStore(d.Mongo)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure otp indexes: %w", err)
		}
		return store, nil
	case config.OTPStoreMemory, "":
		return otp.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown otp store %q", d.Cfg.OTP.Store)
	}
}

// NewIdentityRepository picks the user store: Postgres when configured, then
// Mongo, then memory. Falling back to memory while OTP challenges persist
// elsewhere is logged, since users would then be lost on restart.
func NewIdentityRepository(ctx context.Context, d Deps) (identity.Repository, error) {
	switch {
	case d.DB != nil:
		return identity.NewPostgresRepository(d.DB), nil
	case d.Mongo != nil:
		repo := identity.NewMongoRepository(d.Mongo)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure user indexes: %w", err)
		}
		return repo, nil
	}
	if d.Cfg.OTP.Store != "" && d.Cfg.OTP.Store != config.OTPStoreMemory {
		d.Logger.Warn("users are kept in memory while otp challenges are persisted",
			slog.String("otp_store", d.Cfg.OTP.Store),
		)
	}
	return identity.NewMemoryRepository(), nil
}

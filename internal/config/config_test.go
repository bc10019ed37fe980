package config

import (
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("MONGO_URI", "")
	t.Setenv("OTP_STORE", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OTP.Store != OTPStoreMemory {
		t.Fatalf("expected memory store, got %s", cfg.OTP.Store)
	}
	if cfg.JWTSecret == "" {
		t.Fatalf("expected development jwt secret")
	}
	if cfg.SMS.Timeout != 15*time.Second {
		t.Fatalf("expected 15s sms timeout, got %s", cfg.SMS.Timeout)
	}
	if cfg.OTP.CountryCode != "91" {
		t.Fatalf("expected default country code 91, got %s", cfg.OTP.CountryCode)
	}
	if cfg.OTP.MaxAttempts != 5 {
		t.Fatalf("expected 5 max attempts, got %d", cfg.OTP.MaxAttempts)
	}
}

func TestLoadPicksRedisStoreWhenConfigured(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("OTP_STORE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OTP.Store != OTPStoreRedis {
		t.Fatalf("expected redis store, got %s", cfg.OTP.Store)
	}
}

func TestLoadRequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/jal")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without JWT_SECRET in production")
	}
}

func TestLoadRejectsStoreWithoutBackend(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("OTP_STORE", "mongo")
	t.Setenv("MONGO_URI", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for mongo store without MONGO_URI")
	}
}

func TestLoadParsesDurationsAndDebug(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("OTP_STORE", "memory")
	t.Setenv("SMS_TIMEOUT", "3s")
	t.Setenv("AUTH_DEBUG", "TRUE")
	t.Setenv("PHONE_DEFAULT_COUNTRY_CODE", "+44")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SMS.Timeout != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", cfg.SMS.Timeout)
	}
	if !cfg.OTP.Debug {
		t.Fatalf("expected debug enabled")
	}
	if cfg.OTP.CountryCode != "44" {
		t.Fatalf("expected country code 44, got %s", cfg.OTP.CountryCode)
	}
}

func TestAddress(t *testing.T) {
	if got := (Config{Port: "8080"}).Address(); got != ":8080" {
		t.Fatalf("unexpected address %s", got)
	}
	if got := (Config{Port: ":9090"}).Address(); got != ":9090" {
		t.Fatalf("unexpected address %s", got)
	}
}

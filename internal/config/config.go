package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName        = "Jal"
	defaultAppEnv         = "development"
	defaultPort           = "5000"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultSMSProvider    = "msg91"
	defaultSMSTimeout     = 15 * time.Second
	defaultCountryCode    = "91"
	defaultOTPBrand       = "Jal"
	defaultMaxAttempts    = 5
	defaultOTPPerMinute   = 3
	defaultReaperSchedule = "@every 1m"
	devJWTSecret          = "dev-insecure-secret"

	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
)

// OTP store backends.
const (
	OTPStoreMemory   = "memory"
	OTPStorePostgres = "postgres"
	OTPStoreRedis    = "redis"
	OTPStoreMongo    = "mongo"
)

// MSG91Config holds credentials for the MSG91 v5 API.
type MSG91Config struct {
	APIKey     string
	SenderID   string
	TemplateID string
	BaseURL    string
}

// MobizonConfig holds credentials for the Mobizon API.
type MobizonConfig struct {
	APIKey  string
	Sender  string
	BaseURL string
}

// BestSMSConfig holds credentials for the BestSMSBulk API.
type BestSMSConfig struct {
	Username string
	Password string
	SenderID string
	BaseURL  string
}

// SMSConfig selects and configures the SMS provider.
type SMSConfig struct {
	Provider      string
	Timeout       time.Duration
	WebhookSecret string
	MSG91         MSG91Config
	Mobizon       MobizonConfig
	BestSMS       BestSMSConfig
}

// OTPConfig tunes the verification flow.
type OTPConfig struct {
	Store             string
	Brand             string
	CountryCode       string
	MaxAttempts       int
	RequestsPerMinute int
	ReaperSchedule    string
	Debug             bool
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	Env            string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	MongoURL       string
	MongoDatabase  string
	JWTSecret      string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	SMS            SMSConfig
	OTP            OTPConfig
}

// Load reads configuration values from the environment and populates a Config instance.
// A .env file in the working directory is applied first when present; real
// environment variables win over it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		Env:            getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		MongoURL:       os.Getenv("MONGO_URI"),
		MongoDatabase:  getEnv("MONGO_DATABASE", "jal"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		SMS: SMSConfig{
			Provider:      strings.ToLower(getEnv("SMS_PROVIDER", defaultSMSProvider)),
			Timeout:       defaultSMSTimeout,
			WebhookSecret: os.Getenv("MSG91_WEBHOOK_SECRET"),
			MSG91: MSG91Config{
				APIKey:     os.Getenv("MSG91_API_KEY"),
				SenderID:   os.Getenv("MSG91_SENDER_ID"),
				TemplateID: os.Getenv("MSG91_TEMPLATE_ID"),
				BaseURL:    os.Getenv("MSG91_BASE_URL"),
			},
			Mobizon: MobizonConfig{
				APIKey:  os.Getenv("MOBIZON_API_KEY"),
				Sender:  os.Getenv("MOBIZON_SENDER"),
				BaseURL: os.Getenv("MOBIZON_BASE_URL"),
			},
			BestSMS: BestSMSConfig{
				Username: os.Getenv("BESTSMS_USERNAME"),
				Password: os.Getenv("BESTSMS_PASSWORD"),
				SenderID: os.Getenv("BESTSMS_SENDER_ID"),
				BaseURL:  os.Getenv("BESTSMS_BASE_URL"),
			},
		},
		OTP: OTPConfig{
			Store:             strings.ToLower(os.Getenv("OTP_STORE")),
			Brand:             getEnv("OTP_BRAND", defaultOTPBrand),
			CountryCode:       strings.TrimPrefix(getEnv("PHONE_DEFAULT_COUNTRY_CODE", defaultCountryCode), "+"),
			MaxAttempts:       defaultMaxAttempts,
			RequestsPerMinute: defaultOTPPerMinute,
			ReaperSchedule:    getEnv("OTP_REAPER_SCHEDULE", defaultReaperSchedule),
			Debug:             strings.EqualFold(os.Getenv("AUTH_DEBUG"), "true"),
		},
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.SMS.Timeout, err = durationFromEnv("SMS_TIMEOUT_SECONDS", "SMS_TIMEOUT", cfg.SMS.Timeout); err != nil {
		return Config{}, err
	}
	if cfg.OTP.MaxAttempts, err = intFromEnv("OTP_MAX_ATTEMPTS", cfg.OTP.MaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.OTP.RequestsPerMinute, err = intFromEnv("OTP_REQUESTS_PER_MINUTE", cfg.OTP.RequestsPerMinute); err != nil {
		return Config{}, err
	}

	if cfg.OTP.Store == "" {
		cfg.OTP.Store = cfg.defaultOTPStore()
	}
	switch cfg.OTP.Store {
	case OTPStoreMemory:
	case OTPStorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when OTP_STORE=%s", cfg.OTP.Store)
		}
	case OTPStoreRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when OTP_STORE=%s", cfg.OTP.Store)
		}
	case OTPStoreMongo:
		if cfg.MongoURL == "" {
			return Config{}, fmt.Errorf("MONGO_URI must be set when OTP_STORE=%s", cfg.OTP.Store)
		}
	default:
		return Config{}, fmt.Errorf("invalid OTP_STORE %q", cfg.OTP.Store)
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDev() {
			return Config{}, fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", cfg.Env)
		}
		cfg.JWTSecret = devJWTSecret
	}

	if !cfg.IsDev() && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.Env)
	}

	return cfg, nil
}

// IsDev reports whether the configured environment is a development one.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) defaultOTPStore() string {
	switch {
	case c.RedisURL != "":
		return OTPStoreRedis
	case c.DatabaseURL != "":
		return OTPStorePostgres
	case c.MongoURL != "":
		return OTPStoreMongo
	default:
		return OTPStoreMemory
	}
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jalstore/storefront/internal/identity"
	"github.com/jalstore/storefront/internal/phone"
	"github.com/jalstore/storefront/internal/sms"
)

const defaultBrand = "Jal"

// UserDirectory finds or creates the account that owns a phone key.
type UserDirectory interface {
	FindOrCreateByPhone(ctx context.Context, phoneKey, name string) (identity.User, bool, error)
}

// TokenIssuer mints a bearer session token for a user.
type TokenIssuer interface {
	Mint(user identity.User) (string, time.Time, error)
}

// Options tunes the verification flow.
type Options struct {
	Brand       string
	CountryCode string
	// MaxAttempts locks a challenge after that many mismatches. Zero disables the cap.
	MaxAttempts int
	// Debug exposes the raw code in request results and logs.
	Debug    bool
	HashCost int
	Now      func() time.Time
}

// RequestResult acknowledges an issued challenge.
type RequestResult struct {
	Phone     string
	ExpiresAt time.Time
	// DevCode is only populated in debug mode.
	DevCode string
}

// Session is the outcome of a successful verification.
type Session struct {
	User      identity.User
	Token     string
	ExpiresAt time.Time
	Created   bool
}

// Service issues and verifies one-time codes.
type Service struct {
	store  Store
	sender sms.Sender
	users  UserDirectory
	tokens TokenIssuer
	logger *slog.Logger
	opts   Options
}

// NewService wires the verification flow.
func NewService(store Store, sender sms.Sender, users UserDirectory, tokens TokenIssuer, logger *slog.Logger, opts Options) *Service {
	if opts.Brand == "" {
		opts.Brand = defaultBrand
	}
	if opts.CountryCode == "" {
		opts.CountryCode = phone.DefaultCountryCode
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: store, sender: sender, users: users, tokens: tokens, logger: logger, opts: opts}
}

// Normalize maps raw user input to the phone key used by the flow.
func (s *Service) Normalize(raw string) string {
	return phone.NormalizeWithCountry(raw, s.opts.CountryCode)
}

// Request issues a fresh code for phone, replacing any outstanding one, and
// sends it by SMS. A delivery failure leaves the new challenge in place.
func (s *Service) Request(ctx context.Context, rawPhone string) (RequestResult, error) {
	key := s.Normalize(rawPhone)
	if !phone.Valid(key) {
		return RequestResult{}, ErrInvalidInput
	}

	code, err := GenerateCode()
	if err != nil {
		return RequestResult{}, fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.opts.HashCost)
	if err != nil {
		return RequestResult{}, fmt.Errorf("hash code: %w", err)
	}

	expiresAt := s.opts.Now().Add(CodeTTL)
	if _, err := s.store.Upsert(ctx, key, string(hash), expiresAt); err != nil {
		return RequestResult{}, fmt.Errorf("store verification: %w", err)
	}

	text := fmt.Sprintf("Your %s OTP is %s. It expires in %d min.", s.opts.Brand, code, int(CodeTTL/time.Minute))
	receipt, err := s.sender.Send(ctx, key, text)
	if err != nil {
		if errors.Is(err, sms.ErrMissingCredentials) {
			s.logger.Error("sms provider not configured",
				slog.String("provider", s.sender.Name()),
				slog.Any("error", err),
			)
		} else {
			s.logger.Error("otp delivery failed",
				slog.String("provider", s.sender.Name()),
				slog.String("phone", key),
				slog.Any("error", err),
			)
		}
		return RequestResult{}, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	result := RequestResult{Phone: key, ExpiresAt: expiresAt}
	if s.opts.Debug {
		result.DevCode = code
		s.logger.Debug("otp issued",
			slog.String("phone", key),
			slog.String("code", code),
			slog.String("provider", receipt.Provider),
			slog.String("message_id", receipt.MessageID),
		)
	}
	return result, nil
}

// Verify checks code against the outstanding challenge for phone. On a match
// the challenge is consumed, the account is found or created, and a session
// token is minted. Only the caller that consumes the challenge gets a session.
func (s *Service) Verify(ctx context.Context, rawPhone, code, name string) (Session, error) {
	key := s.Normalize(rawPhone)
	code = strings.TrimSpace(code)
	if !phone.Valid(key) || code == "" {
		return Session{}, ErrInvalidInput
	}

	rec, err := s.store.Find(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrNotRequested
	}
	if err != nil {
		return Session{}, fmt.Errorf("load verification: %w", err)
	}
	if rec.Expired(s.opts.Now()) {
		return Session{}, ErrExpired
	}
	if s.opts.MaxAttempts > 0 {
		if rec.Attempts >= s.opts.MaxAttempts {
			return Session{}, ErrTooManyAttempts
		}
		// Claim the attempt before comparing so parallel guesses share the cap.
		attempts, err := s.store.IncrementAttempts(ctx, key, rec.ID)
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrNotRequested
		}
		if err != nil {
			return Session{}, fmt.Errorf("record attempt: %w", err)
		}
		if attempts > s.opts.MaxAttempts {
			return Session{}, ErrTooManyAttempts
		}
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)) != nil {
		attempts := rec.Attempts + 1
		if s.opts.MaxAttempts == 0 {
			n, err := s.store.IncrementAttempts(ctx, key, rec.ID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				s.logger.Warn("otp attempt count not recorded", slog.String("phone", key), slog.Any("error", err))
			}
			attempts = n
		}
		if s.opts.Debug {
			s.logger.Debug("otp mismatch", slog.String("phone", key), slog.Int("attempts", attempts))
		}
		return Session{}, ErrInvalidCode
	}

	user, created, err := s.users.FindOrCreateByPhone(ctx, key, name)
	if err != nil {
		return Session{}, fmt.Errorf("resolve user: %w", err)
	}

	consumed, err := s.store.Delete(ctx, key, rec.ID)
	if err != nil {
		return Session{}, fmt.Errorf("consume verification: %w", err)
	}
	if !consumed {
		return Session{}, ErrNotRequested
	}

	token, expiresAt, err := s.tokens.Mint(user)
	if err != nil {
		return Session{}, fmt.Errorf("mint session: %w", err)
	}
	if s.opts.Debug {
		s.logger.Debug("otp verified", slog.String("phone", key), slog.String("user_id", user.ID), slog.Bool("created", created))
	}
	return Session{User: user, Token: token, ExpiresAt: expiresAt, Created: created}, nil
}

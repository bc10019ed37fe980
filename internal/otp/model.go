package otp

import (
	"errors"
	"time"
)

const (
	// CodeTTL is how long an issued code stays valid.
	CodeTTL = 5 * time.Minute
	// CodeLength is the number of digits in an issued code.
	CodeLength = 6
	// ExpiredRetention keeps expired records around long enough for verify to
	// report them as expired instead of never requested.
	ExpiredRetention = 10 * time.Minute
)

var (
	// ErrInvalidInput indicates a missing or malformed phone or code.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotRequested indicates there is no pending verification for the phone.
	ErrNotRequested = errors.New("otp not requested")
	// ErrExpired indicates the pending verification is past its expiry.
	ErrExpired = errors.New("otp expired")
	// ErrInvalidCode indicates the submitted code does not match.
	ErrInvalidCode = errors.New("invalid otp")
	// ErrTooManyAttempts indicates the pending verification is locked after repeated mismatches.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrDeliveryFailed indicates the code could not be delivered by SMS.
	ErrDeliveryFailed = errors.New("otp delivery failed")
)

// PendingVerification is the single outstanding challenge for a phone key.
type PendingVerification struct {
	ID        string
	PhoneKey  string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the verification is void at now.
func (v PendingVerification) Expired(now time.Time) bool {
	return v.ExpiresAt.Before(now)
}

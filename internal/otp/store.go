package otp

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when no live record matches.
var ErrNotFound = errors.New("verification not found")

// Store persists at most one pending verification per phone key.
//
// Upsert replaces any existing record for the key with a fresh id and resets
// attempts; concurrent upserts resolve last-writer-wins. IncrementAttempts and
// Delete only act on the record carrying id, so they never touch a challenge
// issued by a later request.
type Store interface {
	Upsert(ctx context.Context, phoneKey, codeHash string, expiresAt time.Time) (PendingVerification, error)
	Find(ctx context.Context, phoneKey string) (PendingVerification, error)
	IncrementAttempts(ctx context.Context, phoneKey, id string) (int, error)
	Delete(ctx context.Context, phoneKey, id string) (bool, error)
}

// Sweeper is implemented by stores that need explicit removal of expired records.
type Sweeper interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

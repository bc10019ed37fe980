package otp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps pending verifications in the otp_verifications table.
// The unique index on phone_key makes the upsert last-writer-wins.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed verification store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert replaces the pending verification for phoneKey.
func (s *PostgresStore) Upsert(ctx context.Context, phoneKey, codeHash string, expiresAt time.Time) (PendingVerification, error) {
	now := time.Now().UTC()
	id := uuid.New()
	rec := PendingVerification{
		ID:        id.String(),
		PhoneKey:  phoneKey,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt.UTC(),
		UpdatedAt: now,
	}
	const query = `
        INSERT INTO otp_verifications (id, phone_key, code_hash, expires_at, attempts, created_at, updated_at)
        VALUES ($1, $2, $3, $4, 0, $5, $5)
        ON CONFLICT (phone_key) DO UPDATE SET
            id = EXCLUDED.id,
            code_hash = EXCLUDED.code_hash,
            expires_at = EXCLUDED.expires_at,
            attempts = 0,
            updated_at = EXCLUDED.updated_at
        RETURNING created_at`
	if err := s.db.QueryRow(ctx, query, id, phoneKey, codeHash, rec.ExpiresAt, now).Scan(&rec.CreatedAt); err != nil {
		return PendingVerification{}, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// Find returns the pending verification for phoneKey.
func (s *PostgresStore) Find(ctx context.Context, phoneKey string) (PendingVerification, error) {
	const query = `
        SELECT id, phone_key, code_hash, expires_at, attempts, created_at, updated_at
        FROM otp_verifications WHERE phone_key = $1`
	var (
		id  uuid.UUID
		rec PendingVerification
	)
	err := s.db.QueryRow(ctx, query, phoneKey).Scan(&id, &rec.PhoneKey, &rec.CodeHash, &rec.ExpiresAt, &rec.Attempts, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PendingVerification{}, ErrNotFound
		}
		return PendingVerification{}, err
	}
	rec.ID = id.String()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

// IncrementAttempts bumps the mismatch counter of the record identified by id.
func (s *PostgresStore) IncrementAttempts(ctx context.Context, phoneKey, id string) (int, error) {
	recID, err := uuid.Parse(id)
	if err != nil {
		return 0, ErrNotFound
	}
	var attempts int
	err = s.db.QueryRow(ctx, `UPDATE otp_verifications SET attempts = attempts + 1, updated_at = $3
        WHERE phone_key = $1 AND id = $2 RETURNING attempts`, phoneKey, recID, time.Now().UTC()).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return attempts, nil
}

// Delete removes the record identified by id and reports whether it existed.
func (s *PostgresStore) Delete(ctx context.Context, phoneKey, id string) (bool, error) {
	recID, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}
	cmd, err := s.db.Exec(ctx, `DELETE FROM otp_verifications WHERE phone_key = $1 AND id = $2`, phoneKey, recID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// DeleteExpired removes every record that expired before the cutoff.
func (s *PostgresStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := s.db.Exec(ctx, `DELETE FROM otp_verifications WHERE expires_at < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

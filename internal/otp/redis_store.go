package otp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "otp:v1:"

// Both scripts compare the stored id first so a newer challenge is left alone.
var (
	incrementScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'id') ~= ARGV[1] then
  return -1
end
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)
`)
	deleteScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'id') ~= ARGV[1] then
  return 0
end
return redis.call('DEL', KEYS[1])
`)
)

// RedisStore keeps each pending verification in a hash that Redis expires
// ExpiredRetention after the verification's expiry, so no sweeper is needed.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore builds a Redis-backed verification store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(phoneKey string) string {
	return redisKeyPrefix + phoneKey
}

// Upsert overwrites the hash for phoneKey inside a MULTI block.
func (s *RedisStore) Upsert(ctx context.Context, phoneKey, codeHash string, expiresAt time.Time) (PendingVerification, error) {
	now := time.Now().UTC()
	rec := PendingVerification{
		ID:        uuid.NewString(),
		PhoneKey:  phoneKey,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	key := redisKey(phoneKey)
	var createdAt *redis.BoolCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"id", rec.ID,
			"code_hash", codeHash,
			"expires_at", strconv.FormatInt(rec.ExpiresAt.UnixMilli(), 10),
			"attempts", 0,
			"updated_at", strconv.FormatInt(now.UnixMilli(), 10),
		)
		createdAt = pipe.HSetNX(ctx, key, "created_at", strconv.FormatInt(now.UnixMilli(), 10))
		pipe.PExpireAt(ctx, key, rec.ExpiresAt.Add(ExpiredRetention))
		return nil
	})
	if err != nil {
		return PendingVerification{}, err
	}
	if !createdAt.Val() {
		if existing, err := s.Find(ctx, phoneKey); err == nil {
			rec.CreatedAt = existing.CreatedAt
		}
	}
	return rec, nil
}

// Find returns the pending verification for phoneKey.
func (s *RedisStore) Find(ctx context.Context, phoneKey string) (PendingVerification, error) {
	fields, err := s.rdb.HGetAll(ctx, redisKey(phoneKey)).Result()
	if err != nil {
		return PendingVerification{}, err
	}
	if len(fields) == 0 || fields["id"] == "" {
		return PendingVerification{}, ErrNotFound
	}
	rec := PendingVerification{
		ID:       fields["id"],
		PhoneKey: phoneKey,
		CodeHash: fields["code_hash"],
	}
	if rec.Attempts, err = strconv.Atoi(fields["attempts"]); err != nil {
		return PendingVerification{}, fmt.Errorf("decode attempts: %w", err)
	}
	if rec.ExpiresAt, err = parseMillis(fields["expires_at"]); err != nil {
		return PendingVerification{}, fmt.Errorf("decode expires_at: %w", err)
	}
	if rec.CreatedAt, err = parseMillis(fields["created_at"]); err != nil {
		return PendingVerification{}, fmt.Errorf("decode created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseMillis(fields["updated_at"]); err != nil {
		return PendingVerification{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return rec, nil
}

// IncrementAttempts bumps the mismatch counter if id still owns the key.
func (s *RedisStore) IncrementAttempts(ctx context.Context, phoneKey, id string) (int, error) {
	n, err := incrementScript.Run(ctx, s.rdb, []string{redisKey(phoneKey)}, id).Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

// Delete removes the hash if id still owns the key.
func (s *RedisStore) Delete(ctx context.Context, phoneKey, id string) (bool, error) {
	n, err := deleteScript.Run(ctx, s.rdb, []string{redisKey(phoneKey)}, id).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func parseMillis(v string) (time.Time, error) {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

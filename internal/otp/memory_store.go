package otp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]PendingVerification
}

// NewMemoryStore builds an in-process store for tests and single-instance development.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[string]PendingVerification)}
}

func (s *memoryStore) Upsert(_ context.Context, phoneKey, codeHash string, expiresAt time.Time) (PendingVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	rec := PendingVerification{
		ID:        uuid.NewString(),
		PhoneKey:  phoneKey,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if prev, ok := s.records[phoneKey]; ok {
		rec.CreatedAt = prev.CreatedAt
	}
	s.records[phoneKey] = rec
	return rec, nil
}

func (s *memoryStore) Find(_ context.Context, phoneKey string) (PendingVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[phoneKey]
	if !ok {
		return PendingVerification{}, ErrNotFound
	}
	return rec, nil
}

func (s *memoryStore) IncrementAttempts(_ context.Context, phoneKey, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[phoneKey]
	if !ok || rec.ID != id {
		return 0, ErrNotFound
	}
	rec.Attempts++
	rec.UpdatedAt = time.Now().UTC()
	s.records[phoneKey] = rec
	return rec.Attempts, nil
}

func (s *memoryStore) Delete(_ context.Context, phoneKey, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[phoneKey]
	if !ok || rec.ID != id {
		return false, nil
	}
	delete(s.records, phoneKey)
	return true, nil
}

func (s *memoryStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, rec := range s.records {
		if rec.ExpiresAt.Before(before) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}

package identity

import (
	"context"
	"sync"
	"testing"
)

func TestFindOrCreateByPhoneCreatesOnce(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	user, created, err := svc.FindOrCreateByPhone(ctx, "+919876543210", "  ")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if !created {
		t.Fatalf("expected user to be created")
	}
	if user.Role != RoleUser {
		t.Fatalf("expected role %s, got %s", RoleUser, user.Role)
	}
	if user.Name != DefaultName {
		t.Fatalf("expected placeholder name, got %q", user.Name)
	}

	again, created, err := svc.FindOrCreateByPhone(ctx, "+919876543210", "Asha")
	if err != nil {
		t.Fatalf("second find or create: %v", err)
	}
	if created {
		t.Fatalf("expected existing user to be reused")
	}
	if again.ID != user.ID || again.Name != DefaultName {
		t.Fatalf("expected existing user untouched, got %+v", again)
	}
}

func TestFindOrCreateByPhoneConcurrentCreatesSingleUser(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, _, err := svc.FindOrCreateByPhone(ctx, "+911234567890", "Ravi")
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			ids[i] = user.ID
		}(i)
	}
	wg.Wait()

	users, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected exactly one user, got %d", len(users))
	}
	for i, id := range ids {
		if id != users[0].ID {
			t.Fatalf("worker %d saw user %s, expected %s", i, id, users[0].ID)
		}
	}
}

func TestGetUnknownUser(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	if _, err := svc.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service manages identity lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// FindOrCreateByPhone returns the user owning phone, creating it with name and
// the default role when none exists. created reports whether this call
// inserted the user. A concurrent create for the same phone loses on the
// repository's uniqueness check and re-reads the winner.
func (s *Service) FindOrCreateByPhone(ctx context.Context, phone, name string) (user User, created bool, err error) {
	user, err = s.repo.FindByPhone(ctx, phone)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, false, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	now := time.Now().UTC()
	user = User{
		ID:        uuid.New().String(),
		Phone:     phone,
		Name:      name,
		Role:      RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicatePhone) {
			existing, findErr := s.repo.FindByPhone(ctx, phone)
			if findErr != nil {
				return User{}, false, findErr
			}
			return existing, false, nil
		}
		return User{}, false, err
	}
	return user, true, nil
}

// Get returns a user by identifier.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns every user for the admin view.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service manages the product catalog.
type Service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput captures data required to create a product.
type CreateInput struct {
	Name  string
	Price int64
}

// Create adds a product.
func (s *Service) Create(ctx context.Context, input CreateInput) (Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || input.Price < 0 {
		return Product{}, ErrInvalidProduct
	}
	product := Product{
		ID:        uuid.New().String(),
		Name:      name,
		Price:     input.Price,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return Product{}, err
	}
	return product, nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns all products.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jalstore/storefront/internal/catalog"
	"github.com/jalstore/storefront/internal/identity"
)

// ProductLookup resolves catalog products referenced by order items.
type ProductLookup interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// UserLookup resolves the buyer of an order for the admin view.
type UserLookup interface {
	Get(ctx context.Context, id string) (identity.User, error)
}

// Service places and lists orders.
type Service struct {
	repo     Repository
	products ProductLookup
	users    UserLookup
}

// NewService constructs an order service.
func NewService(repo Repository, products ProductLookup, users UserLookup) *Service {
	return &Service{repo: repo, products: products, users: users}
}

// CreateInput captures an order placed by a user. TotalPrice is the client's
// view of the total and is optional.
type CreateInput struct {
	UserID     string
	Items      []Item
	TotalPrice *int64
}

// Create prices the items, checks the client total and stores the order.
func (s *Service) Create(ctx context.Context, input CreateInput) (Order, error) {
	if len(input.Items) == 0 {
		return Order{}, ErrNoItems
	}

	items := make([]Item, 0, len(input.Items))
	var total int64
	for _, in := range input.Items {
		item := Item{
			ProductID: strings.TrimSpace(in.ProductID),
			Name:      strings.TrimSpace(in.Name),
			Price:     in.Price,
			Quantity:  in.Quantity,
		}
		if item.ProductID != "" && s.products != nil {
			p, err := s.products.Get(ctx, item.ProductID)
			if errors.Is(err, catalog.ErrNotFound) {
				return Order{}, fmt.Errorf("%w: %s", ErrUnknownProduct, item.ProductID)
			}
			if err != nil {
				return Order{}, err
			}
			item.Name = p.Name
			item.Price = p.Price
		}
		if item.Name == "" || item.Price < 0 || item.Quantity < 1 {
			return Order{}, ErrInvalidItem
		}
		if item.Price > (math.MaxInt64-total)/int64(item.Quantity) {
			return Order{}, fmt.Errorf("%w: total overflows", ErrInvalidItem)
		}
		total += item.Price * int64(item.Quantity)
		items = append(items, item)
	}
	if input.TotalPrice != nil && *input.TotalPrice != total {
		return Order{}, ErrTotalMismatch
	}

	order := Order{
		ID:         uuid.New().String(),
		UserID:     input.UserID,
		Items:      items,
		TotalPrice: total,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// ListByUser returns the orders placed by userID.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListAll returns every order with its buyer. Orders whose buyer no longer
// exists are returned without one.
func (s *Service) ListAll(ctx context.Context) ([]AdminOrder, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	buyers := make(map[string]*Buyer)
	out := make([]AdminOrder, 0, len(orders))
	for _, o := range orders {
		buyer, seen := buyers[o.UserID]
		if !seen && s.users != nil {
			u, err := s.users.Get(ctx, o.UserID)
			switch {
			case err == nil:
				buyer = &Buyer{ID: u.ID, Name: u.Name, Phone: u.Phone}
			case !errors.Is(err, identity.ErrNotFound):
				return nil, err
			}
			buyers[o.UserID] = buyer
		}
		out = append(out, AdminOrder{Order: o, Buyer: buyer})
	}
	return out, nil
}

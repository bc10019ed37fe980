package catalog

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no product matches the id.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidProduct is returned for a blank name or negative price.
	ErrInvalidProduct = errors.New("invalid product")
)

// Product is a sellable item. Price is in minor currency units.
type Product struct {
	ID        string
	Name      string
	Price     int64
	CreatedAt time.Time
}

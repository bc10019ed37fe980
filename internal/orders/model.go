package orders

import (
	"errors"
	"time"
)

var (
	// ErrNoItems is returned when an order has no line items.
	ErrNoItems = errors.New("no items in order")
	// ErrInvalidItem is returned for an item without a name, with a negative
	// price or with a quantity below one.
	ErrInvalidItem = errors.New("invalid order item")
	// ErrUnknownProduct is returned when an item references a missing product.
	ErrUnknownProduct = errors.New("unknown product")
	// ErrTotalMismatch is returned when the client total disagrees with the items.
	ErrTotalMismatch = errors.New("invalid total price")
)

// Item is one order line. Price is per unit in minor currency units.
type Item struct {
	ProductID string `json:"productId,omitempty"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Order is a placed order.
type Order struct {
	ID         string
	UserID     string
	Items      []Item
	TotalPrice int64
	CreatedAt  time.Time
}

// Buyer is the public view of the user who placed an order.
type Buyer struct {
	ID    string
	Name  string
	Phone string
}

// AdminOrder is an order with its buyer resolved.
type AdminOrder struct {
	Order
	Buyer *Buyer
}

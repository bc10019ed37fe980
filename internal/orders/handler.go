package orders

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jalstore/storefront/internal/validation"
)

// Handler exposes order endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an order handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type itemRequest struct {
	ProductID string `json:"productId"`
	Name      string `json:"name" validate:"required_without=ProductID"`
	Price     int64  `json:"price" validate:"gte=0,lte=100000000000"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=10000"`
}

type createRequest struct {
	Items      []itemRequest `json:"items" validate:"required,min=1,dive"`
	TotalPrice *int64        `json:"totalPrice" validate:"omitempty,gte=0"`
}

type buyerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type orderResponse struct {
	LegacyID   string         `json:"_id"`
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	User       *buyerResponse `json:"user,omitempty"`
	Items      []Item         `json:"items"`
	TotalPrice int64          `json:"totalPrice"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func toResponse(o Order) orderResponse {
	return orderResponse{LegacyID: o.ID, ID: o.ID, UserID: o.UserID, Items: o.Items, TotalPrice: o.TotalPrice, CreatedAt: o.CreatedAt}
}

// Create places an order for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return fiber.NewError(http.StatusBadRequest, "No items in order")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	uid, _ := c.Locals("user_id").(string)

	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, Item{ProductID: it.ProductID, Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}
	order, err := h.service.Create(c.UserContext(), CreateInput{UserID: uid, Items: items, TotalPrice: req.TotalPrice})
	if err != nil {
		switch {
		case errors.Is(err, ErrNoItems):
			return fiber.NewError(http.StatusBadRequest, "No items in order")
		case errors.Is(err, ErrTotalMismatch):
			return fiber.NewError(http.StatusBadRequest, "Invalid totalPrice")
		case errors.Is(err, ErrUnknownProduct):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInvalidItem):
			return fiber.NewError(http.StatusBadRequest, "Invalid order item")
		default:
			return err
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(order))
}

// Mine lists the authenticated user's orders.
func (h *Handler) Mine(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	orders, err := h.service.ListByUser(c.UserContext(), uid)
	if err != nil {
		return err
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toResponse(o))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// List returns every order with its buyer. Admin only.
func (h *Handler) List(c *fiber.Ctx) error {
	orders, err := h.service.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp := toResponse(o.Order)
		if o.Buyer != nil {
			resp.User = &buyerResponse{ID: o.Buyer.ID, Name: o.Buyer.Name, Phone: o.Buyer.Phone}
		}
		out = append(out, resp)
	}
	return c.Status(http.StatusOK).JSON(out)
}

package catalog

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jalstore/storefront/internal/validation"
)

// Handler exposes catalog endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a catalog HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name  string `json:"name" validate:"required"`
	Price *int64 `json:"price" validate:"required,gte=0"`
}

type productResponse struct {
	LegacyID  string    `json:"_id"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(p Product) productResponse {
	return productResponse{LegacyID: p.ID, ID: p.ID, Name: p.Name, Price: p.Price, CreatedAt: p.CreatedAt}
}

// List returns all products.
func (h *Handler) List(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toResponse(p))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Create adds a product. Admin only.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	product, err := h.service.Create(c.UserContext(), CreateInput{Name: req.Name, Price: *req.Price})
	if err != nil {
		if errors.Is(err, ErrInvalidProduct) {
			return fiber.NewError(http.StatusBadRequest, "name and a non-negative price are required")
		}
		return err
	}
	return c.Status(http.StatusCreated).JSON(toResponse(product))
}

// Delete removes a product. Admin only.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "Product not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Product removed"})
}

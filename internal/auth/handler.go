package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/jalstore/storefront/internal/otp"
)

// Handler exposes the phone OTP login endpoints.
type Handler struct {
	otps   *otp.Service
	logger *slog.Logger
}

func NewHandler(otps *otp.Service, logger *slog.Logger) *Handler {
	return &Handler{otps: otps, logger: logger}
}

type requestOTPRequest struct {
	Phone string `json:"phone"`
}

type requestOTPResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	DevCode string `json:"devCode,omitempty"`
}

// RequestOTP issues a code for the submitted phone.
func (h *Handler) RequestOTP(c *fiber.Ctx) error {
	var req requestOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.otps.Request(c.UserContext(), req.Phone)
	if err != nil {
		return h.mapError(err)
	}
	return c.Status(http.StatusOK).JSON(requestOTPResponse{OK: true, Message: "OTP sent", DevCode: res.DevCode})
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
	Name  string `json:"name"`
}

type verifyOTPResponse struct {
	LegacyID string `json:"_id"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

// VerifyOTP exchanges a valid code for a session token.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	session, err := h.otps.Verify(c.UserContext(), req.Phone, req.Code, req.Name)
	if err != nil {
		return h.mapError(err)
	}
	u := session.User
	return c.Status(http.StatusOK).JSON(verifyOTPResponse{
		LegacyID: u.ID,
		ID:       u.ID,
		Name:     u.Name,
		Phone:    u.Phone,
		Role:     u.Role,
		Token:    session.Token,
	})
}

// mapError turns flow errors into client responses. Anything unexpected is
// logged and hidden behind a generic message.
func (h *Handler) mapError(err error) error {
	switch {
	case errors.Is(err, otp.ErrInvalidInput):
		return fiber.NewError(http.StatusBadRequest, "Valid phone and code are required")
	case errors.Is(err, otp.ErrNotRequested):
		return fiber.NewError(http.StatusBadRequest, "OTP not requested")
	case errors.Is(err, otp.ErrExpired):
		return fiber.NewError(http.StatusBadRequest, "OTP expired")
	case errors.Is(err, otp.ErrInvalidCode):
		return fiber.NewError(http.StatusBadRequest, "Invalid OTP")
	case errors.Is(err, otp.ErrTooManyAttempts):
		return fiber.NewError(http.StatusTooManyRequests, "Too many attempts, request a new OTP")
	case errors.Is(err, otp.ErrDeliveryFailed):
		return fiber.NewError(http.StatusBadGateway, "Failed to send OTP")
	default:
		h.logger.Error("otp flow failed", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "Something went wrong")
	}
}

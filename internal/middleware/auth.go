package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jalstore/storefront/internal/auth"
	"github.com/jalstore/storefront/internal/identity"
)

// Locals keys set by Authenticate.
const (
	LocalUserID = "user_id"
	LocalRole   = "role"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// UserFinder loads the account behind a token.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (identity.User, error)
}

// Authenticate requires a valid bearer token whose user still exists. The
// stored role wins over the one embedded in the token.
func Authenticate(tokens TokenVerifier, users UserFinder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		scheme, tokenStr, ok := strings.Cut(authz, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenStr) == "" {
			return fiber.NewError(http.StatusUnauthorized, "Not authorized, no token")
		}
		claims, err := tokens.Verify(strings.TrimSpace(tokenStr))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "Not authorized, token failed")
		}
		user, err := users.FindByID(c.UserContext(), claims.ID)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "Not authorized, user not found")
		}

		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalRole, user.Role)
		return c.Next()
	}
}

// RequireRole rejects authenticated callers lacking role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if got, _ := c.Locals(LocalRole).(string); got != role {
			if role == identity.RoleAdmin {
				return fiber.NewError(http.StatusForbidden, "Admin access required")
			}
			return fiber.NewError(http.StatusForbidden, "forbidden")
		}
		return c.Next()
	}
}

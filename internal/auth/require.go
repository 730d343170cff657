package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// RequireIdentity ensures an authenticated identity was resolved earlier in
// the chain. Useful when a route group mixes gated and ungated middleware.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}

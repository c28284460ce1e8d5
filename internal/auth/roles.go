package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// RequireActiveUser rejects principals whose account left the Active state
// after their access credential was issued.
func RequireActiveUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if !principal.User.IsActive() {
			return fiber.NewError(http.StatusForbidden, "Contact Admin")
		}
		return c.Next()
	}
}

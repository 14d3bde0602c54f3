package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/collabdir/directory-service/pkg/util"
)

// RequireAdmin restricts a route to administrators. It must be ordered after
// Middleware.Handle; an absent principal is treated as unauthenticated.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !user.IsAdmin {
			return apperrors.NewForbidden("administrator rights required")
		}
		return c.Next()
	}
}

package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-hub/internal/domain"
	apperrors "github.com/spec-kit/request-hub/pkg/util"
)

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[user.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a caller is signed in, regardless of role.
func RequireAuthenticated() fiber.Handler {
	return RequireRole()
}

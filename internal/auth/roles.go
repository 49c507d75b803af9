package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// RequireRole ensures the principal holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("sign in required")
		}
		if _, exists := allowedSet[principal.Actor.Role]; !exists {
			return apperrors.NewUnauthorized("your role cannot access this resource")
		}
		return c.Next()
	}
}

// RequireStaff allows secretaries and DSI administrators.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.RoleSecretary, domain.RoleDSIAdmin)
}

package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
	apperrors "github.com/dealerkit/chat-orchestrator/pkg/util"
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
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireRoleLevel ensures the principal's role level meets the minimum.
func RequireRoleLevel(minLevel int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Role.Level() < minLevel {
			return apperrors.NewForbidden("insufficient role level")
		}
		return c.Next()
	}
}

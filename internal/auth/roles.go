package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/revmak/marketplace-api/internal/domain"
	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

// Authorize reports whether identity holds one of the allowed roles.
func Authorize(identity *domain.Identity, allowed domain.RoleSet) bool {
	if identity == nil || !identity.Active {
		return false
	}
	return allowed.Contains(identity.Role)
}

// RequireRole ensures the authenticated caller has one of the allowed roles.
// It must run after Gateway.Handle. Messages are left empty and filled in by
// the error middleware for the caller's language.
func RequireRole(roles ...domain.Role) fiber.Handler {
	allowed := domain.NewRoleSet(roles...)

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewKindError(apperrors.KindNoCredentials, "", nil, nil)
		}
		if !Authorize(identity, allowed) {
			return apperrors.NewKindError(apperrors.KindForbidden, "", map[string]any{
				"required_roles": roles,
			}, nil)
		}
		return c.Next()
	}
}

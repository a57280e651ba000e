package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/revmak/marketplace-api/internal/domain"
)

const identityKey = "auth_identity"

type identityCtxKey struct{}

// SetIdentity attaches the identity to the fiber locals and the request context.
func SetIdentity(c *fiber.Ctx, identity *domain.Identity) {
	c.Locals(identityKey, identity)
	c.SetUserContext(WithIdentity(c.UserContext(), identity))
}

// IdentityFromContext retrieves the authenticated identity.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

// WithIdentity returns a child context carrying identity.
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// IdentityFrom retrieves the identity from a context built by WithIdentity.
func IdentityFrom(ctx context.Context) (*domain.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(*domain.Identity)
	return identity, ok && identity != nil
}

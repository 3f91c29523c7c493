package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/asafe/user-service/internal/domain"
	apperrors "github.com/asafe/user-service/pkg/util"
)

const principalKey = "auth_principal"

// Verifier resolves a bearer token to a principal.
type Verifier interface {
	Verify(token string) (*domain.Principal, error)
}

// AuthMiddleware validates bearer tokens and stores the principal for the request.
type AuthMiddleware struct {
	tokens Verifier
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens Verifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}

	principal, err := m.tokens.Verify(token)
	if err != nil {
		return apperrors.NewUnauthorized("Invalid token")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.NewUnauthorized("Missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("Invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok && principal != nil
}

// MustPrincipal returns the principal stored by Handle. Calling it on a route
// that is not behind the middleware is a wiring bug and panics.
func MustPrincipal(c *fiber.Ctx) *domain.Principal {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		panic("auth: principal missing; route is not behind AuthMiddleware.Handle")
	}
	return principal
}

package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/asafe/user-service/internal/domain"
	apperrors "github.com/asafe/user-service/pkg/util"
)

// RoleSet is the set of roles allowed through a guard.
type RoleSet map[domain.Role]struct{}

// NewRoleSet builds a set from roles.
func NewRoleSet(roles ...domain.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// Contains reports membership of role.
func (s RoleSet) Contains(role domain.Role) bool {
	_, ok := s[role]
	return ok
}

// Authorize checks that the principal's role is in allowed. There is no
// role hierarchy: ADMIN is not implicitly allowed where only USER is listed.
func Authorize(principal *domain.Principal, allowed RoleSet) error {
	if principal == nil {
		panic("auth: Authorize called without a principal")
	}
	if !allowed.Contains(principal.Role) {
		return apperrors.NewForbidden("Insufficient permissions")
	}
	return nil
}

// RequireRole ensures the authenticated principal has one of the allowed roles.
// It must be mounted after AuthMiddleware.Handle.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := NewRoleSet(allowed...)

	return func(c *fiber.Ctx) error {
		if err := Authorize(MustPrincipal(c), allowedSet); err != nil {
			return err
		}
		return c.Next()
	}
}

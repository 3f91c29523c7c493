package domain

// Role gates access to user management operations.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Principal is the identity resolved from a verified token for one request.
type Principal struct {
	ID   int64
	Role Role
}

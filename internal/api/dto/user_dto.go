package dto

import (
	"time"

	"github.com/asafe/user-service/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Name     string      `json:"name" validate:"required,notblank"`
	Password string      `json:"password" validate:"required,min=6,max=72"`
	Role     domain.Role `json:"role,omitempty" validate:"omitempty,oneof=ADMIN USER"`
}

// UserCreateRequest payload for administrator-created users.
type UserCreateRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Name     string      `json:"name" validate:"required,notblank"`
	Password string      `json:"password" validate:"required,min=6,max=72"`
	Role     domain.Role `json:"role,omitempty" validate:"omitempty,oneof=ADMIN USER"`
}

// UserUpdateRequest payload for partial updates; absent fields are unchanged.
type UserUpdateRequest struct {
	Email *string      `json:"email,omitempty" validate:"omitempty,email"`
	Name  *string      `json:"name,omitempty" validate:"omitempty,notblank"`
	Role  *domain.Role `json:"role,omitempty" validate:"omitempty,oneof=ADMIN USER"`
}

// ToDomain converts the request to a repository update.
func (r UserUpdateRequest) ToDomain() domain.UserUpdate {
	return domain.UserUpdate{Email: r.Email, Name: r.Name, Role: r.Role}
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    int64       `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
}

// NewUserResponse strips private fields from user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}
}

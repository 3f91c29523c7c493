package domain

import "time"

// User is the stored account record.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserUpdate carries the fields of a partial update; nil fields are left untouched.
type UserUpdate struct {
	Email *string
	Name  *string
	Role  *Role
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Name == nil && u.Role == nil
}

package users

import (
	"time"

	"github.com/mipyme/backoffice/internal/platform/httpx"
	"github.com/mipyme/backoffice/internal/shared"
)

// User represents a user account for management.
type User struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      shared.Role `json:"role"`
	IsActive  bool        `json:"isActive"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// CreateUserRequest registers a new account.
type CreateUserRequest struct {
	Name     string      `json:"name" validate:"required,max=120"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     shared.Role `json:"role" validate:"required,oneof=ADMIN STANDARD READONLY"`
}

// UpdateUserRequest changes profile, role, activity or password.
type UpdateUserRequest struct {
	Name     *string      `json:"name" validate:"omitempty,min=1,max=120"`
	Role     *shared.Role `json:"role" validate:"omitempty,oneof=ADMIN STANDARD READONLY"`
	IsActive *bool        `json:"isActive"`
	Password *string      `json:"password" validate:"omitempty,min=8,max=72"`
}

type ListFilter struct {
	httpx.PageParams
}

package dto

import "github.com/noah-isme/grid-mediation-api/internal/models"

// CreateUserRequest is the admin payload for onboarding a user.
type CreateUserRequest struct {
	Username string          `json:"username" validate:"required,min=3"`
	Password string          `json:"password" validate:"required,min=6"`
	Name     string          `json:"name" validate:"required"`
	Phone    string          `json:"phone"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN GRID_MANAGER MEDIATOR"`
	GridID   *string         `json:"grid_id"`
}

// UpdateUserRequest mutates user fields; nil fields are left untouched.
type UpdateUserRequest struct {
	Name   *string          `json:"name"`
	Phone  *string          `json:"phone"`
	Role   *models.UserRole `json:"role"`
	GridID *string          `json:"grid_id"`
	Active *bool            `json:"active"`
}

// UpdateProfileRequest is the self-service profile mutation.
type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

package dto

import "github.com/classpoint/classpoint-api/internal/models"

// RegisterRequest is the self-registration payload. Only students may
// register themselves.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the account payload returned by auth and admin endpoints.
type UserResponse struct {
	UserID   uint    `json:"userId"`
	Username string  `json:"username"`
	Email    *string `json:"email"`
	Role     string  `json:"role"`
	Points   int     `json:"points"`
}

// NewUserResponse converts a User model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Points:   user.Points,
	}
}

// LoginResponse bundles the authenticated user with the issued token.
type LoginResponse struct {
	UserResponse
	Token string `json:"token"`
}

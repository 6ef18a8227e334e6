package dto

import (
	"time"

	"github.com/spec-kit/request-hub/internal/domain"
)

// RegisterPayload is the self sign-up form; it always creates a requestor.
type RegisterPayload struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// AdminCreateUserPayload lets an admin create an account with any role.
type AdminCreateUserPayload struct {
	RegisterPayload
	Role string `json:"role"`
}

// LoginPayload is the credential form.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordPayload rotates the signed-in user's password.
type ChangePasswordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ResetRequestPayload starts the forgot-password flow.
type ResetRequestPayload struct {
	Email string `json:"email"`
}

// ResetConfirmPayload finishes the forgot-password flow.
type ResetConfirmPayload struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// AuthResponse is the issued session.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public shape of a user.
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
		Role:  string(user.Role),
	}
}

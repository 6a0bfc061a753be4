package dto

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// RegisterResponse is returned instead of a token: accounts start inactive
// and must verify the emailed code first.
type RegisterResponse struct {
	Message              string `json:"message"`
	RequiresVerification bool   `json:"requires_verification"`
	Email                string `json:"email"`
	Role                 string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyOTCRequest struct {
	Email   string `json:"email"`
	Code    string `json:"code"`
	Purpose string `json:"purpose,omitempty"`
}

type ResendOTCRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose,omitempty"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type GoogleSignInRequest struct {
	IDToken string `json:"id_token"`
	Role    string `json:"role,omitempty"`
}

type UpdateAccountRequest struct {
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	OldPassword    string `json:"old_password,omitempty"`
	NewPassword    string `json:"new_password,omitempty"`
	Role           string `json:"role,omitempty"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// OTCVerifiedResponse is the password-reset verification assertion; the
// account is untouched and the code stays pending until the reset is
// finalized.
type OTCVerifiedResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	ProfilePicture *string   `json:"profile_picture,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

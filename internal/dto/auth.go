package dto

import (
	"regexp"
	"unicode"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// RegisterRequest represents registration request
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=50"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6,max=72"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ValidatePassword checks password strength requirements:
// - At least 6 characters
// - At least one uppercase letter
// - At least one lowercase letter
// - At least one digit
// - At least one special character
func ValidatePassword(password string) (bool, string) {
	if len(password) < 6 {
		return false, "Password must be at least 6 characters"
	}
	if len(password) > 72 {
		return false, "Password must not exceed 72 characters"
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		case unicode.IsPunct(c) || unicode.IsSymbol(c):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return false, "Password must contain at least one uppercase letter"
	}
	if !hasLower {
		return false, "Password must contain at least one lowercase letter"
	}
	if !hasDigit {
		return false, "Password must contain at least one digit"
	}
	if !hasSpecial {
		return false, "Password must contain at least one special character"
	}

	return true, ""
}

// ValidatePassword validates the password strength of the request
func (r *RegisterRequest) ValidatePassword() (bool, string) {
	return ValidatePassword(r.Password)
}

// ValidateEmail validates email format more strictly than the binding tag
func (r *RegisterRequest) ValidateEmail() (bool, string) {
	if !emailRegex.MatchString(r.Email) {
		return false, "Invalid email format"
	}
	return true, ""
}

// LoginRequest represents login request. Login accepts either the
// username or the registered email address.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Validate checks the profile update request
func (r *UpdateProfileRequest) Validate() (bool, string) {
	if r.Username == "" && r.FirstName == "" && r.LastName == "" {
		return false, "Nothing to update"
	}
	if r.Username != "" && (len(r.Username) < 3 || len(r.Username) > 50) {
		return false, "Username must be between 3 and 50 characters"
	}
	if len(r.FirstName) > 100 || len(r.LastName) > 100 {
		return false, "Name must not exceed 100 characters"
	}
	return true, ""
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// Validate checks the password change request
func (r *ChangePasswordRequest) Validate() (bool, string) {
	if r.NewPassword != r.ConfirmPassword {
		return false, "Password confirmation does not match"
	}
	if r.NewPassword == r.CurrentPassword {
		return false, "New password must differ from the current password"
	}
	return ValidatePassword(r.NewPassword)
}

// ForgotPasswordRequest represents a password reset initiation request
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest represents a password reset completion request
type ResetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// Validate checks the password reset request
func (r *ResetPasswordRequest) Validate() (bool, string) {
	if r.NewPassword != r.ConfirmPassword {
		return false, "Password confirmation does not match"
	}
	return ValidatePassword(r.NewPassword)
}

// ResendVerificationRequest represents a verification email resend request
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// AuthResponse represents authentication response. The refresh token is
// delivered only via an HTTP-only cookie, never in the body.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	User        UserResponse `json:"user"`
}

// UserResponse represents user data in response
type UserResponse struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	FirstName     string   `json:"first_name,omitempty"`
	LastName      string   `json:"last_name,omitempty"`
	Status        string   `json:"status"`
	Roles         []string `json:"roles"`
	EmailVerified bool     `json:"email_verified"`
	CreatedAt     string   `json:"created_at"`
	LastLoginAt   string   `json:"last_login_at,omitempty"`
}

package dto

import (
	"time"

	"github.com/binkeyit/storefront/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyEmailRequest carries the code from the verify-email link.
type VerifyEmailRequest struct {
	Code string `json:"code"`
}

// UpdateUserRequest lists optional profile changes.
type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// ForgotPasswordRequest starts the OTP flow.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// VerifyOTPRequest checks an emailed OTP.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// ResetPasswordRequest sets a new password after OTP verification.
type ResetPasswordRequest struct {
	Email           string `json:"email"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginResponse is the data of a successful login.
type LoginResponse struct {
	AccessToken  string `json:"accesstoken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse is the data of a successful refresh exchange.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// UserResponse is the public view of an account. It never carries the
// password hash or the refresh credential.
type UserResponse struct {
	ID            string     `json:"_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Avatar        string     `json:"avatar"`
	Mobile        *string    `json:"mobile"`
	VerifyEmail   bool       `json:"verify_email"`
	LastLoginDate *time.Time `json:"last_login_date"`
	Status        string     `json:"status"`
	Role          string     `json:"role"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// NewUserResponse maps a domain user to its public view.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Avatar:        u.Avatar,
		Mobile:        u.Mobile,
		VerifyEmail:   u.VerifyEmail,
		LastLoginDate: u.LastLoginDate,
		Status:        string(u.Status),
		Role:          string(u.Role),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

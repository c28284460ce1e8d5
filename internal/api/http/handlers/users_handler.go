package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/binkeyit/storefront/internal/api/dto"
	"github.com/binkeyit/storefront/internal/auth"
	"github.com/binkeyit/storefront/internal/service"
	apperrors "github.com/binkeyit/storefront/pkg/util"
)

// UsersHandler exposes the account and session endpoints.
type UsersHandler struct {
	auth         *service.AuthService
	cookieSecure bool
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, cookieSecure bool) *UsersHandler {
	return &UsersHandler{auth: authService, cookieSecure: cookieSecure}
}

// Register handles POST /api/user/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("Provide email, name and password", nil)
	}

	user, err := h.auth.RegisterUser(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(success("User registered successfully", dto.NewUserResponse(user)))
}

// VerifyEmail handles POST /api/user/verify-email.
func (h *UsersHandler) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.auth.VerifyEmail(c.UserContext(), strings.TrimSpace(req.Code)); err != nil {
		return err
	}
	return c.JSON(success("Email verified successfully", nil))
}

// Login handles POST /api/user/login. Both credentials are returned in the
// body and set as cookies.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("Provide email and password", nil)
	}

	_, pair, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setCookie(c, auth.AccessTokenCookie, pair.Access.Value, pair.Access.ExpiresAt)
	h.setCookie(c, auth.RefreshTokenCookie, pair.Refresh.Value, pair.Refresh.ExpiresAt)
	return c.JSON(success("Login successful", dto.LoginResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
	}))
}

// Logout handles GET /api/user/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized access")
	}
	if err := h.auth.Logout(c.UserContext(), principal.User.ID); err != nil {
		return err
	}
	h.clearCookie(c, auth.AccessTokenCookie)
	h.clearCookie(c, auth.RefreshTokenCookie)
	return c.JSON(success("Logout successfully", nil))
}

// RefreshToken handles POST /api/user/refresh-token. The refresh credential
// comes from the Authorization header or the refreshToken cookie.
func (h *UsersHandler) RefreshToken(c *fiber.Ctx) error {
	token, err := auth.CredentialFromRequest(c, auth.RefreshTokenCookie)
	if err != nil {
		return auth.Unauthorized(err)
	}

	access, err := h.auth.RefreshAccess(c.UserContext(), token)
	if err != nil {
		return err
	}

	h.setCookie(c, auth.AccessTokenCookie, access.Value, access.ExpiresAt)
	return c.JSON(success("New Access token generated", dto.RefreshResponse{AccessToken: access.Value}))
}

// UserDetails handles GET /api/user/user-details.
func (h *UsersHandler) UserDetails(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized access")
	}
	user, err := h.auth.UserDetails(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(success("User details retrieved successfully", dto.NewUserResponse(user)))
}

// UpdateUser handles PUT /api/user/update-user.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized access")
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.auth.UpdateUser(c.UserContext(), principal.User.ID, service.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Mobile:   req.Mobile,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(success("Updated successfully", dto.NewUserResponse(user)))
}

// ForgotPassword handles PUT /api/user/forgot-password.
func (h *UsersHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("Provide email", nil)
	}
	if err := h.auth.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(success("Check your email", nil))
}

// VerifyForgotPasswordOTP handles PUT /api/user/verify-forgot-password-otp.
func (h *UsersHandler) VerifyForgotPasswordOTP(c *fiber.Ctx) error {
	var req dto.VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.OTP) == "" {
		return apperrors.NewValidationError("Provide required field email, otp.", nil)
	}
	if err := h.auth.VerifyForgotPasswordOTP(c.UserContext(), req.Email, req.OTP); err != nil {
		return err
	}
	return c.JSON(success("Verify otp successfully", nil))
}

// ResetPassword handles PUT /api/user/reset-password.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return apperrors.NewValidationError("Provide required fields email, newPassword, confirmPassword", nil)
	}
	if err := h.auth.ResetPassword(c.UserContext(), req.Email, req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	return c.JSON(success("Password updated successfully.", nil))
}

func (h *UsersHandler) setCookie(c *fiber.Ctx, name, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func (h *UsersHandler) clearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func success(message string, data any) fiber.Map {
	body := fiber.Map{
		"message": message,
		"error":   false,
		"success": true,
	}
	if data != nil {
		body["data"] = data
	}
	return body
}

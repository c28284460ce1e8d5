package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/binkeyit/storefront/internal/domain"
	"github.com/binkeyit/storefront/internal/repository"
	apperrors "github.com/binkeyit/storefront/pkg/util"
)

const (
	principalKey = "auth_principal"

	// AccessTokenCookie and RefreshTokenCookie name the credential cookies.
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Principal represents the authenticated caller.
type Principal struct {
	User   *domain.User
	Claims *Claims
}

// AuthMiddleware validates access credentials and loads principals.
type AuthMiddleware struct {
	tokens *TokenIssuer
	users  repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenIssuer, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes. Every credential
// failure answers 401 so clients can run their refresh path.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := CredentialFromRequest(c, AccessTokenCookie)
	if err != nil {
		return Unauthorized(err)
	}

	claims, err := m.tokens.ValidateAccessCredential(token)
	if err != nil {
		return Unauthorized(err)
	}

	user, err := m.users.GetByID(c.UserContext(), claims.SubjectID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{User: user, Claims: claims})
	return c.Next()
}

// CredentialFromRequest reads a bearer credential from the Authorization
// header, falling back to the named cookie.
func CredentialFromRequest(c *fiber.Ctx, cookie string) (string, error) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", ErrMalformedToken
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if value := c.Cookies(cookie); value != "" {
		return value, nil
	}
	return "", ErrMissingToken
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

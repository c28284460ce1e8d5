package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/binkeyit/storefront/internal/config"
	"github.com/binkeyit/storefront/internal/domain"
)

// RefreshTokenStore persists the single current refresh credential per subject.
type RefreshTokenStore interface {
	SetRefreshToken(ctx context.Context, subjectID, token string) error
	ClearRefreshToken(ctx context.Context, subjectID string) error
}

// Claims describes the JWT payload of both credential kinds.
type Claims struct {
	Kind domain.TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// SubjectID returns the subject the credential was issued to.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// TokenIssuer mints and validates access and refresh credentials.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	store         RefreshTokenStore
	now           func() time.Time
}

// Option customizes a TokenIssuer.
type Option func(*TokenIssuer)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(ti *TokenIssuer) { ti.now = now }
}

// NewTokenIssuer builds an issuer from auth settings.
func NewTokenIssuer(cfg config.AuthConfig, store RefreshTokenStore, opts ...Option) *TokenIssuer {
	accessTTL := cfg.AccessTokenTTL()
	if accessTTL <= 0 {
		accessTTL = 5 * time.Hour
	}
	refreshTTL := cfg.RefreshTokenTTL()
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	ti := &TokenIssuer{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		store:         store,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(ti)
	}
	return ti
}

// IssueAccessCredential signs a short-lived access credential. It touches no state.
func (ti *TokenIssuer) IssueAccessCredential(subjectID string) (domain.Token, error) {
	return ti.sign(subjectID, domain.TokenKindAccess, ti.accessSecret, ti.accessTTL)
}

// IssueRefreshCredential signs a refresh credential and stores it on the
// subject record, replacing any previous one.
func (ti *TokenIssuer) IssueRefreshCredential(ctx context.Context, subjectID string) (domain.Token, error) {
	tok, err := ti.sign(subjectID, domain.TokenKindRefresh, ti.refreshSecret, ti.refreshTTL)
	if err != nil {
		return domain.Token{}, err
	}
	if err := ti.store.SetRefreshToken(ctx, subjectID, tok.Value); err != nil {
		return domain.Token{}, fmt.Errorf("store refresh token: %w", err)
	}
	return tok, nil
}

// RevokeRefreshCredential clears the stored refresh credential. Clearing an
// already empty value is not an error.
func (ti *TokenIssuer) RevokeRefreshCredential(ctx context.Context, subjectID string) error {
	return ti.store.ClearRefreshToken(ctx, subjectID)
}

// ValidateAccessCredential validates an access credential.
func (ti *TokenIssuer) ValidateAccessCredential(token string) (*Claims, error) {
	return ti.validateKind(token, ti.accessSecret, domain.TokenKindAccess)
}

// ValidateRefreshCredential validates a refresh credential by signature and
// expiry only. Server-side presence is checked by the caller.
func (ti *TokenIssuer) ValidateRefreshCredential(token string) (*Claims, error) {
	return ti.validateKind(token, ti.refreshSecret, domain.TokenKindRefresh)
}

// ValidateCredential verifies token against key. The signature is checked
// before expiry, so a tampered token always reports ErrBadSignature.
func (ti *TokenIssuer) ValidateCredential(token string, key []byte) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token claims", ErrMalformedToken)
	}
	return claims, nil
}

func (ti *TokenIssuer) validateKind(token string, key []byte, kind domain.TokenKind) (*Claims, error) {
	claims, err := ti.ValidateCredential(token, key)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrMalformedToken, kind, claims.Kind)
	}
	return claims, nil
}

func (ti *TokenIssuer) sign(subjectID string, kind domain.TokenKind, secret []byte, ttl time.Duration) (domain.Token, error) {
	if len(secret) == 0 {
		return domain.Token{}, ErrSigningKeyMissing
	}
	if subjectID == "" {
		return domain.Token{}, errors.New("subject id required")
	}

	issuedAt := ti.now()
	expiresAt := issuedAt.Add(ttl)
	id := uuid.NewString()
	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return domain.Token{}, err
	}
	return domain.Token{
		ID:        id,
		SubjectID: subjectID,
		Kind:      kind,
		Value:     value,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

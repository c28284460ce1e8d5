package auth

import (
	"errors"

	apperrors "github.com/binkeyit/storefront/pkg/util"
)

// Credential validation failure kinds. Validation errors wrap exactly one of these.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrExpiredToken   = errors.New("token expired")
	ErrBadSignature   = errors.New("bad token signature")
	ErrMissingToken   = errors.New("missing token")
	// ErrRevokedToken marks a refresh credential that verifies but is no longer
	// the value stored on the subject record.
	ErrRevokedToken = errors.New("token revoked")

	ErrSigningKeyMissing = errors.New("signing key not configured")
)

// FailureCode returns the wire code for a credential failure, or "" when err
// is not one.
func FailureCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "MISSING_TOKEN"
	case errors.Is(err, ErrBadSignature):
		return "BAD_SIGNATURE"
	case errors.Is(err, ErrExpiredToken):
		return "EXPIRED_TOKEN"
	case errors.Is(err, ErrRevokedToken):
		return "REVOKED_TOKEN"
	case errors.Is(err, ErrMalformedToken):
		return "MALFORMED_TOKEN"
	default:
		return ""
	}
}

// Unauthorized converts a credential failure into a 401 DomainError. Other
// errors are returned unchanged.
func Unauthorized(err error) error {
	code := FailureCode(err)
	if code == "" {
		return err
	}
	message := "Unauthorized access"
	switch code {
	case "MISSING_TOKEN":
		message = "Provide token"
	case "EXPIRED_TOKEN":
		message = "Token is expired"
	case "REVOKED_TOKEN":
		message = "Token has been revoked"
	}
	return apperrors.NewUnauthorizedCode(code, message, err)
}

package domain

import "time"

// TokenKind differentiates access and refresh credentials.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Token describes an issued credential.
type Token struct {
	ID        string
	SubjectID string
	Kind      TokenKind
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is what a successful login hands back to the caller.
type TokenPair struct {
	Access  Token
	Refresh Token
}

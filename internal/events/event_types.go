package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered         EventType = "user_registered"
	EventUserLoggedIn           EventType = "user_logged_in"
	EventUserLoggedOut          EventType = "user_logged_out"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordReset          EventType = "password_reset"
)

// Event represents a domain event emitted by the account services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload carries what the verify-email message needs.
type UserRegisteredPayload struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	VerifyURL string `json:"verify_url"`
}

// PasswordResetRequestedPayload carries the forgot-password OTP.
type PasswordResetRequestedPayload struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	OTP       string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

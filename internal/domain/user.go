package domain

import "time"

// UserStatus represents lifecycle states for a storefront account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "Active"
	UserStatusInactive  UserStatus = "Inactive"
	UserStatusSuspended UserStatus = "Suspended"
)

// UserRole is stored on every account. The API only creates USER accounts.
type UserRole string

const UserRoleUser UserRole = "USER"

// User is the domain model for storefront accounts. RefreshToken holds the
// single refresh credential currently valid for the account, empty after logout.
type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Avatar        string
	Mobile        *string
	RefreshToken  string
	VerifyEmail   bool
	LastLoginDate *time.Time
	Status        UserStatus
	Role          UserRole
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive reports whether the account may sign in.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

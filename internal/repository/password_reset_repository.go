package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrOTPNotFound is returned when no live OTP exists for an email.
var ErrOTPNotFound = errors.New("otp not found")

// PasswordResetRepository stores forgot-password OTPs and the short-lived
// marker that allows a password reset once an OTP has been verified.
type PasswordResetRepository interface {
	SaveOTP(ctx context.Context, email, otp string, ttl time.Duration) error
	GetOTP(ctx context.Context, email string) (string, error)
	DeleteOTP(ctx context.Context, email string) error
	MarkVerified(ctx context.Context, email string, ttl time.Duration) error
	ConsumeVerified(ctx context.Context, email string) (bool, error)
}

type passwordResetRepository struct {
	client *redis.Client
}

// NewPasswordResetRepository constructs a Redis-backed repository. Key expiry
// enforces the OTP lifetime.
func NewPasswordResetRepository(client *redis.Client) PasswordResetRepository {
	return &passwordResetRepository{client: client}
}

func otpKey(email string) string      { return "pwreset:otp:" + email }
func verifiedKey(email string) string { return "pwreset:verified:" + email }

func (r *passwordResetRepository) SaveOTP(ctx context.Context, email, otp string, ttl time.Duration) error {
	return r.client.Set(ctx, otpKey(email), otp, ttl).Err()
}

func (r *passwordResetRepository) GetOTP(ctx context.Context, email string) (string, error) {
	otp, err := r.client.Get(ctx, otpKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrOTPNotFound
	}
	if err != nil {
		return "", err
	}
	return otp, nil
}

func (r *passwordResetRepository) DeleteOTP(ctx context.Context, email string) error {
	return r.client.Del(ctx, otpKey(email)).Err()
}

func (r *passwordResetRepository) MarkVerified(ctx context.Context, email string, ttl time.Duration) error {
	return r.client.Set(ctx, verifiedKey(email), "1", ttl).Err()
}

// ConsumeVerified deletes the verified marker and reports whether it existed.
func (r *passwordResetRepository) ConsumeVerified(ctx context.Context, email string) (bool, error) {
	n, err := r.client.Del(ctx, verifiedKey(email)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/binkeyit/storefront/internal/repository"
)

var _ repository.PasswordResetRepository = (*FakePasswordResetRepo)(nil)

type expiring struct {
	value     string
	expiresAt time.Time
}

// FakePasswordResetRepo mimics the Redis repository with TTL-aware maps.
type FakePasswordResetRepo struct {
	lock     sync.Mutex
	otps     map[string]expiring
	verified map[string]expiring
	Now      func() time.Time
}

func NewFakePasswordResetRepo() *FakePasswordResetRepo {
	return &FakePasswordResetRepo{
		otps:     make(map[string]expiring),
		verified: make(map[string]expiring),
		Now:      time.Now,
	}
}

func (r *FakePasswordResetRepo) SaveOTP(_ context.Context, email, otp string, ttl time.Duration) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.otps[email] = expiring{value: otp, expiresAt: r.Now().Add(ttl)}
	return nil
}

func (r *FakePasswordResetRepo) GetOTP(_ context.Context, email string) (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	e, ok := r.otps[email]
	if !ok || !r.Now().Before(e.expiresAt) {
		delete(r.otps, email)
		return "", repository.ErrOTPNotFound
	}
	return e.value, nil
}

func (r *FakePasswordResetRepo) DeleteOTP(_ context.Context, email string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.otps, email)
	return nil
}

func (r *FakePasswordResetRepo) MarkVerified(_ context.Context, email string, ttl time.Duration) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.verified[email] = expiring{value: "1", expiresAt: r.Now().Add(ttl)}
	return nil
}

func (r *FakePasswordResetRepo) ConsumeVerified(_ context.Context, email string) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	e, ok := r.verified[email]
	delete(r.verified, email)
	return ok && r.Now().Before(e.expiresAt), nil
}

package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/binkeyit/storefront/internal/domain"
	"github.com/binkeyit/storefront/internal/repository"
	apperrors "github.com/binkeyit/storefront/pkg/util"
)

var _ repository.UserRepository = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory UserRepository for tests.
type FakeUserRepo struct {
	lock  sync.RWMutex
	users map[string]*domain.User
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *FakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.emailTaken(user.Email, "") {
		return apperrors.NewConflict(repository.EmailTakenMessage, nil)
	}
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *FakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if r.emailTaken(user.Email, user.ID) {
		return apperrors.NewConflict(repository.EmailTakenMessage, nil)
	}
	cp := *user
	cp.RefreshToken = existing.RefreshToken
	cp.VerifyEmail = existing.VerifyEmail
	cp.LastLoginDate = existing.LastLoginDate
	cp.UpdatedAt = time.Now()
	r.users[user.ID] = &cp
	return nil
}

func (r *FakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r *FakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *FakeUserRepo) MarkEmailVerified(_ context.Context, id string) error {
	return r.mutate(id, func(u *domain.User) { u.VerifyEmail = true })
}

func (r *FakeUserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(u *domain.User) { u.LastLoginDate = &at })
}

func (r *FakeUserRepo) GetRefreshToken(_ context.Context, id string) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return u.RefreshToken, nil
}

func (r *FakeUserRepo) SetRefreshToken(_ context.Context, id, token string) error {
	return r.mutate(id, func(u *domain.User) { u.RefreshToken = token })
}

func (r *FakeUserRepo) ClearRefreshToken(_ context.Context, id string) error {
	return r.mutate(id, func(u *domain.User) { u.RefreshToken = "" })
}

// Put stores a user as-is, keeping its ID. Tests use it to seed fixtures.
func (r *FakeUserRepo) Put(user *domain.User) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	r.users[user.ID] = &cp
}

func (r *FakeUserRepo) mutate(id string, fn func(*domain.User)) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	u, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(u)
	return nil
}

func (r *FakeUserRepo) emailTaken(email, exceptID string) bool {
	for id, u := range r.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

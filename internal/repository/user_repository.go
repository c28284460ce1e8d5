package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/binkeyit/storefront/internal/domain"
	apperrors "github.com/binkeyit/storefront/pkg/util"
)

const uniqueViolation = "23505"

// EmailTakenMessage is the conflict message for a duplicate account email.
const EmailTakenMessage = "Email already registered"

// UserRepository defines persistence access for storefront accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	MarkEmailVerified(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	GetRefreshToken(ctx context.Context, id string) (string, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	ClearRefreshToken(ctx context.Context, id string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, avatar, mobile, refresh_token,
        verify_email, last_login_date, status, role, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, status, role)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Status,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return mapWriteError(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, avatar=$4, mobile=$5,
            status=$6, role=$7, updated_at=NOW()
        WHERE id=$8`

	cmd, err := r.pool.Exec(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Avatar,
		user.Mobile,
		user.Status,
		user.Role,
		user.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id string) error {
	const query = `UPDATE users SET verify_email=TRUE, updated_at=NOW() WHERE id=$1`
	return r.execOne(ctx, query, id)
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET last_login_date=$1 WHERE id=$2`
	return r.execOne(ctx, query, at, id)
}

func (r *userRepository) GetRefreshToken(ctx context.Context, id string) (string, error) {
	const query = `SELECT refresh_token FROM users WHERE id=$1`
	var token string
	if err := r.pool.QueryRow(ctx, query, id).Scan(&token); err != nil {
		return "", err
	}
	return token, nil
}

// SetRefreshToken overwrites the single stored refresh credential. Concurrent
// logins race last-write-wins.
func (r *userRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	const query = `UPDATE users SET refresh_token=$1 WHERE id=$2`
	return r.execOne(ctx, query, token, id)
}

func (r *userRepository) ClearRefreshToken(ctx context.Context, id string) error {
	const query = `UPDATE users SET refresh_token='' WHERE id=$1`
	return r.execOne(ctx, query, id)
}

// mapWriteError turns the unique email violation into a conflict. The
// service checks for an existing email first, but two registrations can
// still race past that check.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.NewConflict(EmailTakenMessage, nil)
	}
	return err
}

func (r *userRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Avatar,
		&user.Mobile,
		&user.RefreshToken,
		&user.VerifyEmail,
		&user.LastLoginDate,
		&user.Status,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

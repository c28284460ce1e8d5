package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/binkeyit/storefront/internal/auth"
	"github.com/binkeyit/storefront/internal/config"
	"github.com/binkeyit/storefront/internal/domain"
	"github.com/binkeyit/storefront/internal/events"
	"github.com/binkeyit/storefront/internal/observability"
	"github.com/binkeyit/storefront/internal/repository"
	apperrors "github.com/binkeyit/storefront/pkg/util"
)

// AuthService coordinates registration, login and the session lifecycle.
type AuthService struct {
	users             repository.UserRepository
	resets            repository.PasswordResetRepository
	tokens            *auth.TokenIssuer
	dispatcher        events.Dispatcher
	metrics           *observability.Metrics
	logger            *zap.Logger
	bcryptCost        int
	otpTTL            time.Duration
	otpVerifiedTTL    time.Duration
	enforceRevocation bool
	frontendURL       string
	now               func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Dispatcher        events.Dispatcher
	Metrics           *observability.Metrics
	Logger            *zap.Logger
	TokenOptions      []auth.Option
}

// UpdateUserInput lists the optional profile fields a user may change.
type UpdateUserInput struct {
	Name     string
	Email    string
	Mobile   string
	Password string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:             deps.UserRepo,
		resets:            deps.PasswordResetRepo,
		tokens:            auth.NewTokenIssuer(cfg.Auth, deps.UserRepo, deps.TokenOptions...),
		dispatcher:        deps.Dispatcher,
		metrics:           deps.Metrics,
		logger:            logger,
		bcryptCost:        cfg.Auth.BcryptCost,
		otpTTL:            cfg.Auth.OTPTTL(),
		otpVerifiedTTL:    cfg.Auth.OTPVerifiedTTL(),
		enforceRevocation: cfg.Auth.EnforceRefreshRevocation,
		frontendURL:       strings.TrimRight(cfg.App.FrontendURL, "/"),
		now:               time.Now,
	}
}

// TokenIssuer exposes the underlying issuer for middleware usage.
func (s *AuthService) TokenIssuer() *auth.TokenIssuer {
	return s.tokens
}

// RegisterUser creates a new account and sends the verify-email message.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict(repository.EmailTakenMessage, nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
		Role:         domain.UserRoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Name:      user.Name,
		Email:     user.Email,
		VerifyURL: fmt.Sprintf("%s/verify-email?code=%s", s.frontendURL, user.ID),
	})
	return user, nil
}

// VerifyEmail marks the account identified by the emailed code as verified.
func (s *AuthService) VerifyEmail(ctx context.Context, code string) error {
	if _, err := uuid.Parse(code); err != nil {
		return apperrors.NewBadRequest("INVALID_CODE", "Invalid code")
	}
	if err := s.users.MarkEmailVerified(ctx, code); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewBadRequest("INVALID_CODE", "Invalid code")
		}
		return err
	}
	return nil
}

// Login checks credentials and issues an access and a refresh credential.
// Credential failures are 400, never 401, so a session client does not treat
// them as an expired session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, domain.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.TokenPair{}, apperrors.NewBadRequest("USER_NOT_REGISTERED", "User not registered")
		}
		return nil, domain.TokenPair{}, err
	}
	if !user.IsActive() {
		return nil, domain.TokenPair{}, apperrors.NewBadRequest("ACCOUNT_INACTIVE", "Contact Admin")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.TokenPair{}, apperrors.NewBadRequest("INVALID_PASSWORD", "Invalid password")
	}

	access, err := s.tokens.IssueAccessCredential(user.ID)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	s.metrics.RecordTokenIssued(domain.TokenKindAccess)

	refresh, err := s.tokens.IssueRefreshCredential(ctx, user.ID)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	s.metrics.RecordTokenIssued(domain.TokenKindRefresh)
	user.RefreshToken = refresh.Value

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.publish(ctx, events.EventUserLoggedIn, user.ID, nil)
	return user, domain.TokenPair{Access: access, Refresh: refresh}, nil
}

// Logout revokes the stored refresh credential.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.tokens.RevokeRefreshCredential(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("User", nil)
		}
		return err
	}
	s.publish(ctx, events.EventUserLoggedOut, userID, nil)
	return nil
}

// RefreshAccess exchanges a refresh credential for a new access credential.
// The refresh credential itself is not rotated. With revocation enforced the
// presented value must also equal the one stored on the user record, so a
// credential cleared at logout or replaced by a later login is refused.
func (s *AuthService) RefreshAccess(ctx context.Context, refreshToken string) (domain.Token, error) {
	claims, err := s.tokens.ValidateRefreshCredential(refreshToken)
	if err != nil {
		s.metrics.RecordRefresh(observability.RefreshOutcomeRejected)
		return domain.Token{}, auth.Unauthorized(err)
	}
	subjectID := claims.SubjectID()

	if s.enforceRevocation {
		stored, err := s.users.GetRefreshToken(ctx, subjectID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return domain.Token{}, err
		}
		if stored == "" || !auth.SecretsEqual(stored, refreshToken) {
			s.metrics.RecordRefresh(observability.RefreshOutcomeRevoked)
			return domain.Token{}, auth.Unauthorized(fmt.Errorf("%w: not the current refresh token for subject", auth.ErrRevokedToken))
		}
	}

	access, err := s.tokens.IssueAccessCredential(subjectID)
	if err != nil {
		return domain.Token{}, err
	}
	s.metrics.RecordTokenIssued(domain.TokenKindAccess)
	s.metrics.RecordRefresh(observability.RefreshOutcomeSuccess)
	return access, nil
}

// UserDetails returns the account for id.
func (s *AuthService) UserDetails(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("User", nil)
		}
		return nil, err
	}
	return user, nil
}

// UpdateUser applies the non-empty fields of in.
func (s *AuthService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error) {
	user, err := s.UserDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = name
	}
	if email := normalizeEmail(in.Email); email != "" && email != user.Email {
		if _, err := s.users.GetByEmail(ctx, email); err == nil {
			return nil, apperrors.NewConflict(repository.EmailTakenMessage, nil)
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		user.Email = email
	}
	if mobile := strings.TrimSpace(in.Mobile); mobile != "" {
		user.Mobile = &mobile
	}
	passwordChanged := false
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		passwordChanged = true
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	// A new password ends every session held by the old one.
	if passwordChanged {
		if err := s.tokens.RevokeRefreshCredential(ctx, user.ID); err != nil {
			return nil, err
		}
		user.RefreshToken = ""
	}
	return user, nil
}

// ForgotPassword stores a fresh OTP and emails it.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userByEmailForReset(ctx, email)
	if err != nil {
		return err
	}

	otp, err := auth.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.resets.SaveOTP(ctx, user.Email, otp, s.otpTTL); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordResetRequested, user.ID, events.PasswordResetRequestedPayload{
		Name:      user.Name,
		Email:     user.Email,
		OTP:       otp,
		ExpiresAt: s.now().Add(s.otpTTL),
	})
	return nil
}

// VerifyForgotPasswordOTP checks the OTP, consumes it and allows one reset.
func (s *AuthService) VerifyForgotPasswordOTP(ctx context.Context, email, otp string) error {
	user, err := s.userByEmailForReset(ctx, email)
	if err != nil {
		return err
	}

	stored, err := s.resets.GetOTP(ctx, user.Email)
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return apperrors.NewBadRequest("OTP_EXPIRED", "Otp is expired")
		}
		return err
	}
	if !auth.SecretsEqual(stored, strings.TrimSpace(otp)) {
		return apperrors.NewBadRequest("INVALID_OTP", "Invalid otp")
	}

	if err := s.resets.DeleteOTP(ctx, user.Email); err != nil {
		return err
	}
	return s.resets.MarkVerified(ctx, user.Email, s.otpVerifiedTTL)
}

// ResetPassword sets a new password after a verified OTP and revokes the
// current refresh credential.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword, confirmPassword string) error {
	user, err := s.userByEmailForReset(ctx, email)
	if err != nil {
		return err
	}
	if newPassword != confirmPassword {
		return apperrors.NewValidationError("newPassword and confirmPassword must be the same.", nil)
	}

	verified, err := s.resets.ConsumeVerified(ctx, user.Email)
	if err != nil {
		return err
	}
	if !verified {
		return apperrors.NewDomainError("OTP_NOT_VERIFIED", "Verify otp before resetting the password", http.StatusBadRequest, nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	if err := s.tokens.RevokeRefreshCredential(ctx, user.ID); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordReset, user.ID, nil)
	return nil
}

func (s *AuthService) userByEmailForReset(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewBadRequest("EMAIL_NOT_AVAILABLE", "Email not available")
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: s.now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("publish event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

// FlowConfig holds the constants of the authentication flows.
type FlowConfig struct {
	MaxPasswordAttempts int
	ForgotTokenTTL      time.Duration
	ChangeMarkerTTL     time.Duration
}

// DefaultFlowConfig mirrors the production constants.
func DefaultFlowConfig() FlowConfig {
	return FlowConfig{
		MaxPasswordAttempts: 3,
		ForgotTokenTTL:      15 * time.Minute,
		ChangeMarkerTTL:     30 * 24 * time.Hour,
	}
}

// AuthService implements login, session and password lifecycle flows.
type AuthService struct {
	users    ports.UserRepository
	policy   *PasswordPolicy
	tokens   *TokenService
	notifier ports.Notifier
	cfg      FlowConfig
	now      Clock
	log      zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	policy *PasswordPolicy,
	tokens *TokenService,
	notifier ports.Notifier,
	cfg FlowConfig,
	clock Clock,
	log zerolog.Logger,
) *AuthService {
	def := DefaultFlowConfig()
	if cfg.MaxPasswordAttempts <= 0 {
		cfg.MaxPasswordAttempts = def.MaxPasswordAttempts
	}
	if cfg.ForgotTokenTTL <= 0 {
		cfg.ForgotTokenTTL = def.ForgotTokenTTL
	}
	if cfg.ChangeMarkerTTL <= 0 {
		cfg.ChangeMarkerTTL = def.ChangeMarkerTTL
	}
	if clock == nil {
		clock = SystemClock
	}
	return &AuthService{
		users:    users,
		policy:   policy,
		tokens:   tokens,
		notifier: notifier,
		cfg:      cfg,
		now:      clock,
		log:      log,
	}
}

var _ ports.AuthService = (*AuthService)(nil)

// Login verifies the credentials, enforcing the failed-attempt lockout, and
// opens a new session bound to in.Source.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	password, err := user.ActivePassword()
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if password == nil {
		return nil, s.noActivePassword(user)
	}

	if !s.policy.Verify(password.Hash, in.Password) {
		return nil, s.failedAttempt(ctx, user, password)
	}

	password.Attempts = 0
	user.State = domain.StateActive
	refresh, refreshExp, err := s.tokens.IssueRefresh(user, in.Source)
	if err != nil {
		return nil, fmt.Errorf("login: issue refresh token: %w", err)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	access, accessExp, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: issue access token: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("source", in.Source).Msg("user logged in")

	return &ports.LoginResult{
		Access:           ports.AccessToken{Token: access, ExpiresAt: accessExp},
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		User:             user,
	}, nil
}

func (s *AuthService) noActivePassword(user *domain.User) error {
	switch {
	case user.LockedOut(s.cfg.MaxPasswordAttempts):
		return domain.ErrAccountLockedOut
	case user.ExpiredPasswordToken != "":
		return domain.ErrPasswordExpired
	default:
		return domain.ErrInvalidCredentials
	}
}

func (s *AuthService) failedAttempt(ctx context.Context, user *domain.User, password *domain.UserPassword) error {
	password.Attempts++

	if password.Attempts >= s.cfg.MaxPasswordAttempts {
		if err := user.Inactivate(); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		s.log.Warn().Str("user_id", user.ID).Msg("user inactivated after too many failed attempts")
		return domain.ErrAccountLockedOut
	}

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return domain.ErrInvalidCredentials
}

// Logout closes the session identified by refreshToken. An expired token is
// still accepted so that stale sessions can be cleaned up.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return domain.ErrNotAuthenticated
	}

	userID, err := s.tokens.SubjectAllowExpired(refreshToken)
	if err != nil {
		return domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	user.RevokeRefreshToken(refreshToken)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged out")
	return nil
}

// Refresh issues a new access token for an open session. The refresh token
// itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.AccessToken, error) {
	userID, err := s.tokens.Validate(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if !user.HasRefreshToken(refreshToken) {
		return nil, domain.ErrInvalidCredentials
	}

	access, exp, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return &ports.AccessToken{Token: access, ExpiresAt: exp}, nil
}

// ChangePassword rotates the password of an authenticated user and revokes
// every session except the one making the request.
func (s *AuthService) ChangePassword(ctx context.Context, in ports.ChangePasswordInput) error {
	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	current, err := user.ActivePassword()
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if current == nil || !s.policy.Verify(current.Hash, in.Password) {
		return domain.ErrPasswordsDoNotMatch
	}

	if err := s.rotate(user, in.NewPassword); err != nil {
		return err
	}
	user.KeepOnlyRefreshToken(in.RefreshToken)

	if err := s.finishRotation(ctx, user, in.Source); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// ForgotPassword issues a short-lived reset token and mails the reset link.
// Unknown emails are ignored so that account existence does not leak.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.log.Debug().Msg("forgot password requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}

	user.ResetPasswordToken = &domain.ResetPasswordToken{
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.cfg.ForgotTokenTTL),
	}
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}

	s.notifier.Notify(ctx, domain.NotificationFor(user, domain.NotifyForgotPassword, map[string]string{
		"reset_token":        user.ResetPasswordToken.Token,
		"expiration_minutes": fmt.Sprintf("%d", int(s.cfg.ForgotTokenTTL.Minutes())),
	}))
	return nil
}

// ResetPassword sets a new password using an outstanding reset token. Every
// session is revoked because the caller may not hold any of them.
func (s *AuthService) ResetPassword(ctx context.Context, in ports.ResetPasswordInput) error {
	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	token := user.ResetPasswordToken
	if token == nil {
		return domain.ErrNotAllowedToChangePassword
	}
	if token.Token != in.Token || token.Expired(s.now()) {
		return domain.ErrInvalidResetToken
	}

	if err := s.rotate(user, in.NewPassword); err != nil {
		return err
	}
	user.ResetPasswordToken = nil
	user.ClearSessions()

	if err := s.finishRotation(ctx, user, in.Source); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// ReassignExpiredPassword sets a new password after the sweeper expired the
// previous one.
func (s *AuthService) ReassignExpiredPassword(ctx context.Context, in ports.ReassignExpiredPasswordInput) error {
	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return fmt.Errorf("reassign expired password: %w", err)
	}

	if user.ExpiredPasswordToken == "" {
		return domain.ErrNotAllowedToChangePassword
	}
	if user.ExpiredPasswordToken != in.Token {
		return domain.ErrInvalidExpiredPasswordToken
	}

	if err := s.rotate(user, in.NewPassword); err != nil {
		return err
	}
	user.ExpiredPasswordToken = ""

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("reassign expired password: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Msg("expired password reassigned")
	return nil
}

// Authenticate resolves an access token to an existing active user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	userID, err := s.tokens.Validate(accessToken)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if user.State != domain.StateActive {
		return nil, domain.ErrInactiveUser
	}
	return user, nil
}

// rotate validates newPassword and makes it the single active credential.
func (s *AuthService) rotate(user *domain.User, newPassword string) error {
	hash, expiresAt, err := s.policy.NewCredential(user, newPassword, s.now())
	if err != nil {
		return err
	}
	return user.RotatePassword(hash, expiresAt)
}

// finishRotation issues the change marker, persists the user and notifies.
// The marker lets the owner reset the password from the notification if the
// change was not theirs.
func (s *AuthService) finishRotation(ctx context.Context, user *domain.User, source string) error {
	user.ResetPasswordToken = &domain.ResetPasswordToken{
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.cfg.ChangeMarkerTTL),
	}
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.notifier.Notify(ctx, domain.NotificationFor(user, domain.NotifyChangedPassword, map[string]string{
		"source":      source,
		"datetime":    s.now().Format("2006-01-02"),
		"reset_token": user.ResetPasswordToken.Token,
	}))
	s.log.Info().Str("user_id", user.ID).Str("source", source).Msg("password changed")
	return nil
}

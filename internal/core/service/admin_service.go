package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

// AdminConfig holds the administrative constants.
type AdminConfig struct {
	AdminEmail      string
	ReactivationTTL time.Duration
}

// AdminService implements the operations reserved to administrators.
type AdminService struct {
	users    ports.UserRepository
	policy   *PasswordPolicy
	notifier ports.Notifier
	cfg      AdminConfig
	now      Clock
	log      zerolog.Logger
}

func NewAdminService(
	users ports.UserRepository,
	policy *PasswordPolicy,
	notifier ports.Notifier,
	cfg AdminConfig,
	clock Clock,
	log zerolog.Logger,
) *AdminService {
	if cfg.AdminEmail == "" {
		cfg.AdminEmail = "support@ainterviewer.tech"
	}
	if cfg.ReactivationTTL <= 0 {
		cfg.ReactivationTTL = 30 * 24 * time.Hour
	}
	if clock == nil {
		clock = SystemClock
	}
	return &AdminService{
		users:    users,
		policy:   policy,
		notifier: notifier,
		cfg:      cfg,
		now:      clock,
		log:      log,
	}
}

var _ ports.AdminService = (*AdminService)(nil)

// Bootstrap creates the admin account when the store holds no users. The
// generated password is only ever written to the log. It reports whether an
// account was created.
func (s *AdminService) Bootstrap(ctx context.Context) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("bootstrap: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	password, err := randomPassword()
	if err != nil {
		return false, fmt.Errorf("bootstrap: %w", err)
	}
	hash, err := s.policy.Hash(password)
	if err != nil {
		return false, fmt.Errorf("bootstrap: %w", err)
	}

	now := s.now()
	admin := &domain.User{
		ID:                 uuid.NewString(),
		Email:              domain.NormalizeEmail(s.cfg.AdminEmail),
		GivenNames:         "Admin",
		FamilyNames:        "AInterviewer",
		Nickname:           "Admin",
		Language:           domain.LanguageSpanish,
		Role:               domain.RoleAdmin,
		AntiPhishingPhrase: "Phrase to change",
		State:              domain.StateActive,
		CreatedAt:          now,
		Passwords: []domain.UserPassword{{
			Hash:      hash,
			ExpiresAt: s.policy.ExpirationFor(now),
			State:     domain.StateActive,
		}},
	}
	if err := s.users.Insert(ctx, admin); err != nil {
		return false, fmt.Errorf("bootstrap: %w", err)
	}

	s.log.Warn().
		Str("email", admin.Email).
		Str("password", password).
		Msg("admin account created, change this password and the anti-phishing phrase now")
	return true, nil
}

// randomPassword returns 20 hex characters with a suffix that satisfies the
// strict strength profile.
func randomPassword() (string, error) {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b) + "Aa1!", nil
}

// InactiveUsers lists every inactive account.
func (s *AdminService) InactiveUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("inactive users: %w", err)
	}
	var out []*domain.User
	for _, u := range users {
		if u.State == domain.StateInactive {
			out = append(out, u)
		}
	}
	return out, nil
}

// ReactivateUser flips the user back to active and mails a long-lived reset
// token so a new password can be set through the reset flow.
func (s *AdminService) ReactivateUser(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("reactivate user: %w", err)
	}

	user.State = domain.StateActive
	user.ResetPasswordToken = &domain.ResetPasswordToken{
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.cfg.ReactivationTTL),
	}
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("reactivate user: %w", err)
	}

	s.notifier.Notify(ctx, domain.NotificationFor(user, domain.NotifyReactivatedAccount, map[string]string{
		"reset_token": user.ResetPasswordToken.Token,
	}))
	s.log.Info().Str("user_id", user.ID).Msg("user reactivated")
	return nil
}

// UsersInfo lists every non-admin account.
func (s *AdminService) UsersInfo(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("users info: %w", err)
	}
	var out []*domain.User
	for _, u := range users {
		if u.Role != domain.RoleAdmin {
			out = append(out, u)
		}
	}
	return out, nil
}

// SendMessageToUser mails a free-form message to one user.
func (s *AdminService) SendMessageToUser(ctx context.Context, in ports.MessageInput) error {
	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	s.notifier.Notify(ctx, message(user, in.Subject, in.Message))
	return nil
}

// SendMessageToAllUsers mails every non-admin whose language matches. It
// returns the number of recipients.
func (s *AdminService) SendMessageToAllUsers(ctx context.Context, in ports.BroadcastInput) (int, error) {
	if !in.Language.Valid() {
		return 0, domain.ErrInvalidLanguage
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("send message to all: %w", err)
	}
	sent := 0
	for _, u := range users {
		if u.Role == domain.RoleAdmin || u.Language != in.Language {
			continue
		}
		s.notifier.Notify(ctx, message(u, in.Subject, in.Message))
		sent++
	}
	s.log.Info().Int("recipients", sent).Str("language", string(in.Language)).Msg("broadcast sent")
	return sent, nil
}

func message(u *domain.User, subject, body string) domain.Notification {
	n := domain.NotificationFor(u, domain.NotifyMessageToUser, map[string]string{"message": body})
	n.Subject = subject
	return n
}

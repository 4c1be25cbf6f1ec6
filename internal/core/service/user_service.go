package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

// UserService handles invitations, signup and self-service profile changes.
type UserService struct {
	users             ports.UserRepository
	policy            *PasswordPolicy
	notifier          ports.Notifier
	requireInvitation bool
	now               Clock
	log               zerolog.Logger
}

func NewUserService(
	users ports.UserRepository,
	policy *PasswordPolicy,
	notifier ports.Notifier,
	requireInvitation bool,
	clock Clock,
	log zerolog.Logger,
) *UserService {
	if clock == nil {
		clock = SystemClock
	}
	return &UserService{
		users:             users,
		policy:            policy,
		notifier:          notifier,
		requireInvitation: requireInvitation,
		now:               clock,
		log:               log,
	}
}

var _ ports.UserService = (*UserService)(nil)

// InviteUser records an invitation on sponsor and mails it. Inviting the same
// email twice resends the existing validation code.
func (s *UserService) InviteUser(ctx context.Context, sponsor *domain.User, in ports.InviteUserInput) error {
	if err := s.ensureEmailFree(ctx, in.Email); err != nil {
		return err
	}

	invitation := domain.UserInvitation{
		Email:          domain.NormalizeEmail(in.Email),
		ValidationCode: uuid.NewString(),
	}
	if existing, ok := sponsor.Invitation(in.Email); ok {
		invitation = *existing
		sponsor.RemoveInvitation(in.Email)
	}
	sponsor.Invitations = append(sponsor.Invitations, invitation)

	if err := s.users.Update(ctx, sponsor); err != nil {
		return fmt.Errorf("invite user: %w", err)
	}

	language := in.Language
	if !language.Valid() {
		language = sponsor.Language
	}
	s.notifier.Notify(ctx, domain.Notification{
		Kind:      domain.NotifyInvitation,
		Recipient: invitation.Email,
		Language:  language,
		Data: map[string]string{
			"sponsor_user_id":     sponsor.ID,
			"sponsor_given_names": sponsor.GivenNames,
			"sponsor_email":       sponsor.Email,
			"invitation_code":     invitation.ValidationCode,
		},
	})
	s.log.Info().Str("sponsor_id", sponsor.ID).Msg("invitation sent")
	return nil
}

// SponsorInfo returns the sponsor behind an invitation that is still usable.
func (s *UserService) SponsorInfo(ctx context.Context, sponsorID, invitationCode string) (*ports.SponsorInfo, error) {
	sponsor, err := s.users.FindByID(ctx, sponsorID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrSponsorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sponsor info: %w", err)
	}

	invitation, ok := sponsor.InvitationByCode(invitationCode)
	if !ok {
		return nil, domain.ErrInvalidInvitation
	}
	if err := s.ensureEmailFree(ctx, invitation.Email); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrInvitationAlreadyUsed
		}
		return nil, err
	}

	return &ports.SponsorInfo{
		GivenNames:  firstWord(sponsor.GivenNames),
		FamilyNames: firstWord(sponsor.FamilyNames),
		Email:       sponsor.Email,
	}, nil
}

// CreateUser registers a new inactive account. The first successful login
// activates it.
func (s *UserService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	if err := s.ensureEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}

	var sponsor *domain.User
	if s.requireInvitation {
		var err error
		sponsor, err = s.validInvitation(ctx, in)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	hash, expiresAt, err := s.policy.NewCredential(nil, in.Password, now)
	if err != nil {
		return nil, err
	}

	role := in.Role
	if !role.Valid() || role == domain.RoleAdmin {
		role = domain.RoleStaffer
	}
	language := in.Language
	if !language.Valid() {
		language = domain.LanguageSpanish
	}

	user := &domain.User{
		ID:                 uuid.NewString(),
		Email:              domain.NormalizeEmail(in.Email),
		GivenNames:         in.GivenNames,
		FamilyNames:        in.FamilyNames,
		Nickname:           in.Nickname,
		Language:           language,
		Role:               role,
		AntiPhishingPhrase: in.AntiPhishingPhrase,
		State:              domain.StateInactive,
		CreatedAt:          now,
		Passwords: []domain.UserPassword{{
			Hash:      hash,
			ExpiresAt: expiresAt,
			State:     domain.StateActive,
		}},
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if sponsor != nil {
		sponsor.RemoveInvitation(user.Email)
		if err := s.users.Update(ctx, sponsor); err != nil {
			s.log.Error().Err(err).Str("sponsor_id", sponsor.ID).Msg("failed to consume invitation")
		}
	}

	s.notifyAdmins(ctx, user)
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user created")
	return user, nil
}

func (s *UserService) validInvitation(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	sponsor, err := s.users.FindByID(ctx, in.SponsorUserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrSponsorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	invitation, ok := sponsor.InvitationByCode(in.InvitationCode)
	if !ok || domain.NormalizeEmail(invitation.Email) != domain.NormalizeEmail(in.Email) {
		return nil, domain.ErrInvalidInvitation
	}
	return sponsor, nil
}

func (s *UserService) notifyAdmins(ctx context.Context, created *domain.User) {
	users, err := s.users.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list admins for created account notice")
		return
	}
	for _, u := range users {
		if u.Role != domain.RoleAdmin {
			continue
		}
		s.notifier.Notify(ctx, domain.NotificationFor(u, domain.NotifyCreatedAccount, map[string]string{
			"new_user_email":    created.Email,
			"new_user_nickname": created.Nickname,
			"new_user_role":     string(created.Role),
		}))
	}
}

// Profile returns the full view of the user, including private fields.
func (s *UserService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

// Colleagues lists the active non-admin users other than current.
func (s *UserService) Colleagues(ctx context.Context, current *domain.User) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("colleagues: %w", err)
	}
	out := make([]*domain.User, 0, len(users))
	for _, u := range users {
		if u.Role == domain.RoleAdmin || u.State != domain.StateActive || u.ID == current.ID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// UpdateContactInfo edits the nickname and anti-phishing phrase.
func (s *UserService) UpdateContactInfo(ctx context.Context, user *domain.User, in ports.ContactInfoInput) error {
	user.Nickname = in.Nickname
	user.AntiPhishingPhrase = in.AntiPhishingPhrase
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update contact info: %w", err)
	}
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.ErrUserExists
	case errors.Is(err, domain.ErrUserNotFound):
		return nil
	default:
		return fmt.Errorf("lookup email: %w", err)
	}
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

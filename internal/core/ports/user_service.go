package ports

import (
	"context"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

// InviteUserInput is sent by a sponsor inviting somebody to the platform.
type InviteUserInput struct {
	Email    string
	Language domain.Language
}

// CreateUserInput registers a new account from an invitation.
type CreateUserInput struct {
	Email              string
	GivenNames         string
	FamilyNames        string
	Nickname           string
	Language           domain.Language
	Password           string
	SponsorUserID      string
	InvitationCode     string
	AntiPhishingPhrase string
	Role               domain.Role
}

// ContactInfoInput holds the fields a user can edit on their own profile.
type ContactInfoInput struct {
	Nickname           string
	AntiPhishingPhrase string
}

// SponsorInfo is the public view of a sponsor shown on the signup page.
type SponsorInfo struct {
	GivenNames  string
	FamilyNames string
	Email       string
}

// UserService covers registration and self-service profile operations.
type UserService interface {
	InviteUser(ctx context.Context, sponsor *domain.User, in InviteUserInput) error
	SponsorInfo(ctx context.Context, sponsorID, invitationCode string) (*SponsorInfo, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	Colleagues(ctx context.Context, current *domain.User) ([]*domain.User, error)
	UpdateContactInfo(ctx context.Context, user *domain.User, in ContactInfoInput) error
}

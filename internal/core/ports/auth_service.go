package ports

import (
	"context"
	"time"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

// LoginInput carries the credentials and the device descriptor of a login.
type LoginInput struct {
	Email    string
	Password string
	Source   string
}

// AccessToken is a signed short-lived bearer token.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// LoginResult is returned by a successful login. The refresh token is meant to
// travel in an http-only cookie, never in the response body.
type LoginResult struct {
	Access           AccessToken
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             *domain.User
}

// ChangePasswordInput is used by an authenticated user rotating a password.
type ChangePasswordInput struct {
	UserID       string
	Password     string
	NewPassword  string
	RefreshToken string
	Source       string
}

// ResetPasswordInput completes a forgot-password or reactivation flow.
type ResetPasswordInput struct {
	UserID      string
	NewPassword string
	Token       string
	Source      string
}

// ReassignExpiredPasswordInput completes the expired-password flow.
type ReassignExpiredPasswordInput struct {
	UserID      string
	NewPassword string
	Token       string
}

// AuthService is the authentication flow controller.
type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*AccessToken, error)
	ChangePassword(ctx context.Context, in ChangePasswordInput) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) error
	ReassignExpiredPassword(ctx context.Context, in ReassignExpiredPasswordInput) error
	// Authenticate resolves a bearer access token to an active user.
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}

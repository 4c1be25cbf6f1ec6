package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

// TokenConfig sets token lifetimes.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService signs and verifies HS256 access and refresh tokens.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        Clock
}

func NewTokenService(cfg TokenConfig, clock Clock) *TokenService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 60 * 24 * time.Hour
	}
	if clock == nil {
		clock = SystemClock
	}
	return &TokenService{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        clock,
	}
}

// IssueAccess signs a short-lived token for userID. Access tokens are never
// stored.
func (s *TokenService) IssueAccess(userID string) (string, time.Time, error) {
	return s.sign(userID, s.accessTTL, "")
}

// IssueRefresh signs a long-lived token for u and records it as a session
// bound to source. The caller persists u.
func (s *TokenService) IssueRefresh(u *domain.User, source string) (string, time.Time, error) {
	token, exp, err := s.sign(u.ID, s.refreshTTL, uuid.NewString())
	if err != nil {
		return "", time.Time{}, err
	}
	u.AddRefreshToken(token, source)
	return token, exp, nil
}

func (s *TokenService) sign(subject string, ttl time.Duration, id string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        id,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Validate verifies signature and expiry and returns the subject. It fails
// with domain.ErrExpiredToken when exp has passed and domain.ErrInvalidToken
// for anything else.
func (s *TokenService) Validate(token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	return s.subject(parser, token)
}

// SubjectAllowExpired verifies the signature but tolerates an expired token.
// Logout relies on it to clean up sessions whose token already lapsed.
func (s *TokenService) SubjectAllowExpired(token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	return s.subject(parser, token)
}

func (s *TokenService) subject(parser *jwt.Parser, token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return claims.Subject, domain.ErrExpiredToken
	case err != nil:
		return "", domain.ErrInvalidToken
	case claims.Subject == "":
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}

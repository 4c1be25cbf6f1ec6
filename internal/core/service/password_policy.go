package service

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

// Clock returns the current time. Services read time only through it.
type Clock func() time.Time

// SystemClock is the production clock, always UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// specialSymbols is the set of characters accepted as "symbol" by the strict
// strength profile.
const specialSymbols = "!#$%&/()=?¡|-_¿[]{}^<>.,;:+*~@"

const (
	ProfileStrict  = "strict"
	ProfileRelaxed = "relaxed"
)

// PolicyConfig tunes the password policy.
type PolicyConfig struct {
	Profile          string // strict or relaxed
	BcryptCost       int
	PasswordTTL      time.Duration
	NearExpiryNotice time.Duration
}

// DefaultPolicyConfig is the production policy.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Profile:          ProfileStrict,
		BcryptCost:       bcrypt.DefaultCost,
		PasswordTTL:      60 * 24 * time.Hour,
		NearExpiryNotice: 5 * 24 * time.Hour,
	}
}

// PasswordPolicy validates, hashes and ages passwords.
type PasswordPolicy struct {
	cfg PolicyConfig
}

func NewPasswordPolicy(cfg PolicyConfig) *PasswordPolicy {
	def := DefaultPolicyConfig()
	if cfg.Profile != ProfileRelaxed {
		cfg.Profile = ProfileStrict
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = def.BcryptCost
	}
	if cfg.PasswordTTL <= 0 {
		cfg.PasswordTTL = def.PasswordTTL
	}
	if cfg.NearExpiryNotice <= 0 {
		cfg.NearExpiryNotice = def.NearExpiryNotice
	}
	return &PasswordPolicy{cfg: cfg}
}

// ValidateStrength returns domain.ErrWeakPassword when candidate does not meet
// the configured profile.
func (p *PasswordPolicy) ValidateStrength(candidate string) error {
	if p.cfg.Profile == ProfileRelaxed {
		if candidate == "" {
			return domain.ErrWeakPassword
		}
		return nil
	}
	if !IsStrongPassword(candidate) {
		return domain.ErrWeakPassword
	}
	return nil
}

// IsStrongPassword is the strict predicate: more than 7 characters with at
// least one digit, one upper case letter, one lower case letter and one symbol.
// Digits and upper case follow unicode.IsDigit and unicode.IsUpper, so
// superscripts such as "²" and letter numerals such as "Ⅰ" do not count.
func IsStrongPassword(candidate string) bool {
	var digit, upper, lower, symbol bool
	for _, r := range candidate {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
		if strings.ContainsRune(specialSymbols, r) {
			symbol = true
		}
	}
	return len([]rune(candidate)) > 7 && digit && upper && lower && symbol
}

// Hash returns the bcrypt hash of candidate.
func (p *PasswordPolicy) Hash(candidate string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(candidate), p.cfg.BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domain.ErrWeakPassword
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether candidate matches hash.
func (p *PasswordPolicy) Verify(hash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// IsReused reports whether candidate matches any password in the history,
// active or not.
func (p *PasswordPolicy) IsReused(u *domain.User, candidate string) bool {
	for _, pw := range u.Passwords {
		if p.Verify(pw.Hash, candidate) {
			return true
		}
	}
	return false
}

// ExpirationFor returns the expiry of a password created at createdAt.
func (p *PasswordPolicy) ExpirationFor(createdAt time.Time) time.Time {
	return createdAt.Add(p.cfg.PasswordTTL)
}

// NearExpiry returns the whole days left before expiresAt and whether the
// password is inside the notice window.
func (p *PasswordPolicy) NearExpiry(expiresAt, now time.Time) (int, bool) {
	left := expiresAt.Sub(now)
	return int(left / (24 * time.Hour)), left <= p.cfg.NearExpiryNotice
}

// NewCredential validates candidate and returns its hash and expiry, rejecting
// weak passwords and any password already present in u's history.
func (p *PasswordPolicy) NewCredential(u *domain.User, candidate string, now time.Time) (string, time.Time, error) {
	if err := p.ValidateStrength(candidate); err != nil {
		return "", time.Time{}, err
	}
	if u != nil && p.IsReused(u, candidate) {
		return "", time.Time{}, domain.ErrPasswordAlreadyUsed
	}
	hash, err := p.Hash(candidate)
	if err != nil {
		return "", time.Time{}, err
	}
	return hash, p.ExpirationFor(now), nil
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the user's position in the platform.
type Role string

const (
	RoleStaffer Role = "staffer"
	RoleExpert  Role = "expert"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStaffer, RoleExpert, RoleAdmin:
		return true
	}
	return false
}

// State is the lifecycle state shared by users and passwords.
type State string

const (
	StateActive   State = "active"
	StateInactive State = "inactive"
)

// Language selects email templates and subjects.
type Language string

const (
	LanguageSpanish Language = "spanish"
	LanguageEnglish Language = "english"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageSpanish || l == LanguageEnglish
}

// UserPassword is one entry of the password history. Entries are never
// removed so that old passwords cannot be reused.
type UserPassword struct {
	Hash      string
	Attempts  int
	ExpiresAt time.Time
	State     State
}

// RefreshToken is one authenticated device session.
type RefreshToken struct {
	Token  string
	Source string
}

// ResetPasswordToken is a single-use capability to set a new password.
type ResetPasswordToken struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the token is no longer usable at now.
func (t *ResetPasswordToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// UserInvitation is an invite sent by a sponsor to a prospective user.
type UserInvitation struct {
	Email          string
	ValidationCode string
}

// User is the aggregate root of the identity domain.
type User struct {
	ID                    string
	Email                 string
	GivenNames            string
	FamilyNames           string
	Nickname              string
	Language              Language
	Role                  Role
	AntiPhishingPhrase    string
	State                 State
	CreatedAt             time.Time
	Passwords             []UserPassword
	RefreshTokens         []RefreshToken
	Invitations           []UserInvitation
	ResetPasswordToken    *ResetPasswordToken
	ExpiredPasswordToken  string
	RequestedChangesToken string
	Projects              []string
}

// NormalizeEmail is the canonical form used for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ActivePassword returns the single active password, or nil when the user has
// none (expired or locked out). More than one active entry is reported as
// ErrInconsistentState.
func (u *User) ActivePassword() (*UserPassword, error) {
	var active *UserPassword
	for i := range u.Passwords {
		if u.Passwords[i].State != StateActive {
			continue
		}
		if active != nil {
			return nil, fmt.Errorf("user %s: %w: more than one active password", u.ID, ErrInconsistentState)
		}
		active = &u.Passwords[i]
	}
	return active, nil
}

// RotatePassword deactivates the current password and appends a new active one.
func (u *User) RotatePassword(hash string, expiresAt time.Time) error {
	if err := u.ExpireActivePassword(); err != nil {
		return err
	}
	u.Passwords = append(u.Passwords, UserPassword{
		Hash:      hash,
		ExpiresAt: expiresAt,
		State:     StateActive,
	})
	return nil
}

// ExpireActivePassword marks the active password inactive, if any.
func (u *User) ExpireActivePassword() error {
	active, err := u.ActivePassword()
	if err != nil {
		return err
	}
	if active != nil {
		active.State = StateInactive
	}
	return nil
}

// Inactivate locks the account: the user becomes inactive, every session and
// outstanding token is dropped and the active password is retired.
func (u *User) Inactivate() error {
	u.State = StateInactive
	u.RefreshTokens = nil
	u.ResetPasswordToken = nil
	u.ExpiredPasswordToken = ""
	return u.ExpireActivePassword()
}

// LockedOut reports whether the account was locked by repeated failed logins:
// it is inactive and its latest password reached the attempt ceiling.
func (u *User) LockedOut(maxAttempts int) bool {
	if u.State != StateInactive || len(u.Passwords) == 0 {
		return false
	}
	latest := u.Passwords[len(u.Passwords)-1]
	return latest.State == StateInactive && latest.Attempts >= maxAttempts
}

// AddRefreshToken records a new session.
func (u *User) AddRefreshToken(token, source string) {
	u.RefreshTokens = append(u.RefreshTokens, RefreshToken{Token: token, Source: source})
}

// HasRefreshToken reports whether token is an open session of the user.
func (u *User) HasRefreshToken(token string) bool {
	for _, rt := range u.RefreshTokens {
		if rt.Token == token {
			return true
		}
	}
	return false
}

// RevokeRefreshToken removes token from the sessions. It reports whether a
// session was removed.
func (u *User) RevokeRefreshToken(token string) bool {
	kept := u.RefreshTokens[:0]
	removed := false
	for _, rt := range u.RefreshTokens {
		if rt.Token == token {
			removed = true
			continue
		}
		kept = append(kept, rt)
	}
	u.RefreshTokens = kept
	return removed
}

// KeepOnlyRefreshToken revokes every session but token. If token is not an
// open session every session is revoked.
func (u *User) KeepOnlyRefreshToken(token string) {
	var kept []RefreshToken
	for _, rt := range u.RefreshTokens {
		if rt.Token == token {
			kept = []RefreshToken{rt}
			break
		}
	}
	u.RefreshTokens = kept
}

// ClearSessions revokes every session.
func (u *User) ClearSessions() {
	u.RefreshTokens = nil
}

// Invitation returns the invitation sent to email, if any.
func (u *User) Invitation(email string) (*UserInvitation, bool) {
	email = NormalizeEmail(email)
	for i := range u.Invitations {
		if NormalizeEmail(u.Invitations[i].Email) == email {
			return &u.Invitations[i], true
		}
	}
	return nil, false
}

// InvitationByCode returns the invitation carrying code, if any.
func (u *User) InvitationByCode(code string) (*UserInvitation, bool) {
	for i := range u.Invitations {
		if u.Invitations[i].ValidationCode == code {
			return &u.Invitations[i], true
		}
	}
	return nil, false
}

// RemoveInvitation drops the invitation sent to email.
func (u *User) RemoveInvitation(email string) {
	email = NormalizeEmail(email)
	kept := u.Invitations[:0]
	for _, inv := range u.Invitations {
		if NormalizeEmail(inv.Email) != email {
			kept = append(kept, inv)
		}
	}
	u.Invitations = kept
}

// Clone returns a deep copy, so stored aggregates are never aliased by callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Passwords = append([]UserPassword(nil), u.Passwords...)
	c.RefreshTokens = append([]RefreshToken(nil), u.RefreshTokens...)
	c.Invitations = append([]UserInvitation(nil), u.Invitations...)
	c.Projects = append([]string(nil), u.Projects...)
	if u.ResetPasswordToken != nil {
		t := *u.ResetPasswordToken
		c.ResetPasswordToken = &t
	}
	return &c
}

package domain

import "errors"

// ErrorKind classifies a core error so transport adapters can map it without
// string matching.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalidCredentials
	KindAccountLockedOut
	KindPasswordExpired
	KindPasswordsDoNotMatch
	KindPasswordAlreadyUsed
	KindNotAllowedToChangePassword
	KindInvalidResetToken
	KindInvalidExpiredPasswordToken
	KindNotAuthenticated
	KindValidation
	KindConflict
	KindInvalidInvitation
	KindForbidden
	KindInfrastructure
)

// Error is a business error with a stable code, shared with the web client.
type Error struct {
	Kind ErrorKind
	Code string
}

func (e *Error) Error() string { return e.Code }

func newError(kind ErrorKind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

var (
	ErrUserNotFound                = newError(KindNotFound, "user-not-found")
	ErrSponsorNotFound             = newError(KindNotFound, "sponsor-not-found")
	ErrInvalidCredentials          = newError(KindInvalidCredentials, "invalid-credentials")
	ErrInvalidToken                = newError(KindInvalidCredentials, "not-valid-credentials")
	ErrExpiredToken                = newError(KindInvalidCredentials, "expired-token")
	ErrInactiveUser                = newError(KindInvalidCredentials, "inactive-user")
	ErrAccountLockedOut            = newError(KindAccountLockedOut, "user-inactivated-for-max-attempts")
	ErrPasswordExpired             = newError(KindPasswordExpired, "password-expired")
	ErrPasswordsDoNotMatch         = newError(KindPasswordsDoNotMatch, "passwords-do-not-match")
	ErrPasswordAlreadyUsed         = newError(KindPasswordAlreadyUsed, "password-already-used")
	ErrNotAllowedToChangePassword  = newError(KindNotAllowedToChangePassword, "not-allowed-to-change-password")
	ErrInvalidResetToken           = newError(KindInvalidResetToken, "invalid-reset-password-token")
	ErrInvalidExpiredPasswordToken = newError(KindInvalidExpiredPasswordToken, "invalid-expired-password-token")
	ErrNotAuthenticated            = newError(KindNotAuthenticated, "user-not-authenticated")
	ErrWeakPassword                = newError(KindValidation, "invalid-password")
	ErrInvalidLanguage             = newError(KindValidation, "invalid-language")
	ErrUserExists                  = newError(KindConflict, "user-already-exist-with-email")
	ErrInvalidInvitation           = newError(KindInvalidInvitation, "invalid-invitation")
	ErrInvitationAlreadyUsed       = newError(KindInvalidInvitation, "invitation-already-used")
	ErrForbidden                   = newError(KindForbidden, "not-allowed-action")

	// ErrStorage marks failures of the document store itself. Repositories wrap
	// driver errors with it so callers never mistake an outage for a rejection.
	ErrStorage = newError(KindInfrastructure, "storage-unavailable")

	// ErrInconsistentState is raised when a stored aggregate breaks an invariant,
	// e.g. more than one active password.
	ErrInconsistentState = errors.New("inconsistent user state")
)

// KindOf returns the kind of the first *Error found in err's chain, or
// KindInternal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code of err, or "internal-error".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal-error"
}

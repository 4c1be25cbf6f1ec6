package domain

// NotificationKind identifies an email template.
type NotificationKind string

const (
	NotifyInvitation         NotificationKind = "invitation"
	NotifyCreatedAccount     NotificationKind = "created_account"
	NotifyReactivatedAccount NotificationKind = "reactivated_account"
	NotifyForgotPassword     NotificationKind = "forgot_password"
	NotifyChangedPassword    NotificationKind = "changed_password"
	NotifyPasswordExpired    NotificationKind = "password_expired"
	NotifyPasswordNearExpiry NotificationKind = "password_near_to_expire"
	NotifyMessageToUser      NotificationKind = "message_to_user"
)

// Notification is an outbound message addressed to one recipient.
type Notification struct {
	Kind      NotificationKind
	Recipient string
	Language  Language
	Subject   string // optional, overrides the template subject
	Data      map[string]string
}

// NotificationFor addresses kind to u, filling the fields every template shows.
func NotificationFor(u *User, kind NotificationKind, data map[string]string) Notification {
	merged := map[string]string{
		"user_id":              u.ID,
		"user_nickname":        u.Nickname,
		"anti_phishing_phrase": u.AntiPhishingPhrase,
	}
	for k, v := range data {
		merged[k] = v
	}
	return Notification{
		Kind:      kind,
		Recipient: u.Email,
		Language:  u.Language,
		Data:      merged,
	}
}

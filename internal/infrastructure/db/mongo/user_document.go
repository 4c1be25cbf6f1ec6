package mongo

import (
	"fmt"
	"time"

	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/infrastructure/crypto"
)

// userDocument is the stored shape of a domain.User. Personal fields and
// session secrets hold codec output; enums and timestamps stay queryable.
type userDocument struct {
	ID                    string               `bson:"_id"`
	EmailKey              string               `bson:"email_key"`
	Email                 string               `bson:"email"`
	GivenNames            string               `bson:"given_names"`
	FamilyNames           string               `bson:"family_names"`
	Nickname              string               `bson:"nickname"`
	Language              string               `bson:"language"`
	Role                  string               `bson:"role"`
	AntiPhishingPhrase    string               `bson:"anti_phishing_phrase"`
	State                 string               `bson:"state"`
	CreatedAt             time.Time            `bson:"creation_date"`
	Passwords             []passwordDocument   `bson:"passwords"`
	RefreshTokens         []refreshDocument    `bson:"refresh_tokens,omitempty"`
	Invitations           []invitationDocument `bson:"invitations,omitempty"`
	ResetPasswordToken    *resetTokenDocument  `bson:"reset_password_token,omitempty"`
	ExpiredPasswordToken  string               `bson:"expired_password_token,omitempty"`
	RequestedChangesToken string               `bson:"requested_changes_token,omitempty"`
	Projects              []string             `bson:"projects,omitempty"`
}

type passwordDocument struct {
	Hash      string    `bson:"encrypted_password"`
	Attempts  int       `bson:"password_attempts"`
	ExpiresAt time.Time `bson:"expiration_date"`
	State     string    `bson:"state"`
}

type refreshDocument struct {
	Token  string `bson:"token"`
	Source string `bson:"source"`
}

type invitationDocument struct {
	Email          string `bson:"new_user_email"`
	ValidationCode string `bson:"validation_code"`
}

type resetTokenDocument struct {
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expiration_date"`
}

// fieldMapper runs a sequence of codec calls and keeps the first error.
type fieldMapper struct {
	codec crypto.FieldCodec
	err   error
}

func (m *fieldMapper) enc(v string) string {
	if m.err != nil {
		return ""
	}
	out, err := m.codec.Encode(v)
	if err != nil {
		m.err = err
	}
	return out
}

func (m *fieldMapper) dec(v string) string {
	if m.err != nil {
		return ""
	}
	out, err := m.codec.Decode(v)
	if err != nil {
		m.err = err
	}
	return out
}

func toDocument(u *domain.User, codec crypto.FieldCodec) (*userDocument, error) {
	m := &fieldMapper{codec: codec}
	doc := &userDocument{
		ID:                    u.ID,
		EmailKey:              codec.Index(u.Email),
		Email:                 m.enc(u.Email),
		GivenNames:            m.enc(u.GivenNames),
		FamilyNames:           m.enc(u.FamilyNames),
		Nickname:              m.enc(u.Nickname),
		Language:              string(u.Language),
		Role:                  string(u.Role),
		AntiPhishingPhrase:    m.enc(u.AntiPhishingPhrase),
		State:                 string(u.State),
		CreatedAt:             u.CreatedAt.UTC(),
		ExpiredPasswordToken:  m.enc(u.ExpiredPasswordToken),
		RequestedChangesToken: m.enc(u.RequestedChangesToken),
		Projects:              u.Projects,
	}

	doc.Passwords = make([]passwordDocument, 0, len(u.Passwords))
	for _, p := range u.Passwords {
		doc.Passwords = append(doc.Passwords, passwordDocument{
			Hash:      p.Hash,
			Attempts:  p.Attempts,
			ExpiresAt: p.ExpiresAt.UTC(),
			State:     string(p.State),
		})
	}
	for _, rt := range u.RefreshTokens {
		doc.RefreshTokens = append(doc.RefreshTokens, refreshDocument{
			Token:  m.enc(rt.Token),
			Source: m.enc(rt.Source),
		})
	}
	for _, inv := range u.Invitations {
		doc.Invitations = append(doc.Invitations, invitationDocument{
			Email:          m.enc(inv.Email),
			ValidationCode: inv.ValidationCode,
		})
	}
	if t := u.ResetPasswordToken; t != nil {
		doc.ResetPasswordToken = &resetTokenDocument{
			Token:     m.enc(t.Token),
			ExpiresAt: t.ExpiresAt.UTC(),
		}
	}

	if m.err != nil {
		return nil, fmt.Errorf("encode user %s: %w", u.ID, m.err)
	}
	return doc, nil
}

func fromDocument(doc *userDocument, codec crypto.FieldCodec) (*domain.User, error) {
	m := &fieldMapper{codec: codec}
	u := &domain.User{
		ID:                    doc.ID,
		Email:                 m.dec(doc.Email),
		GivenNames:            m.dec(doc.GivenNames),
		FamilyNames:           m.dec(doc.FamilyNames),
		Nickname:              m.dec(doc.Nickname),
		Language:              domain.Language(doc.Language),
		Role:                  domain.Role(doc.Role),
		AntiPhishingPhrase:    m.dec(doc.AntiPhishingPhrase),
		State:                 domain.State(doc.State),
		CreatedAt:             doc.CreatedAt.UTC(),
		ExpiredPasswordToken:  m.dec(doc.ExpiredPasswordToken),
		RequestedChangesToken: m.dec(doc.RequestedChangesToken),
		Projects:              doc.Projects,
	}

	for _, p := range doc.Passwords {
		u.Passwords = append(u.Passwords, domain.UserPassword{
			Hash:      p.Hash,
			Attempts:  p.Attempts,
			ExpiresAt: p.ExpiresAt.UTC(),
			State:     domain.State(p.State),
		})
	}
	for _, rt := range doc.RefreshTokens {
		u.RefreshTokens = append(u.RefreshTokens, domain.RefreshToken{
			Token:  m.dec(rt.Token),
			Source: m.dec(rt.Source),
		})
	}
	for _, inv := range doc.Invitations {
		u.Invitations = append(u.Invitations, domain.UserInvitation{
			Email:          m.dec(inv.Email),
			ValidationCode: inv.ValidationCode,
		})
	}
	if t := doc.ResetPasswordToken; t != nil {
		u.ResetPasswordToken = &domain.ResetPasswordToken{
			Token:     m.dec(t.Token),
			ExpiresAt: t.ExpiresAt.UTC(),
		}
	}

	if m.err != nil {
		return nil, fmt.Errorf("decode user %s: %w", doc.ID, m.err)
	}
	return u, nil
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

func TestUserHandler_InviteUser(t *testing.T) {
	e := newEcho()
	audit := &recordingAudit{}
	stub := &stubUserService{
		inviteFn: func(_ context.Context, sponsor *domain.User, in ports.InviteUserInput) error {
			if sponsor.ID != "sponsor" || in.Email != "new@example.com" || in.Language != domain.LanguageEnglish {
				t.Fatalf("unexpected args: %s %+v", sponsor.ID, in)
			}
			return nil
		},
	}
	h := NewUserHandler(stub, audit)

	c, rec := jsonContext(e, http.MethodPost, "/users/invite_user", `{"new_user_email":"new@example.com","invitation_language":"english"}`)
	withUser(c, &domain.User{ID: "sponsor"})

	if err := h.InviteUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got := audit.last(); got.actor != "sponsor" || got.action != "invited_user" {
		t.Fatalf("unexpected audit: %+v", got)
	}
}

func TestUserHandler_InviteUser_InvalidLanguage(t *testing.T) {
	e := newEcho()
	h := NewUserHandler(&stubUserService{}, &recordingAudit{})

	c, _ := jsonContext(e, http.MethodPost, "/users/invite_user", `{"new_user_email":"new@example.com","invitation_language":"french"}`)
	withUser(c, &domain.User{ID: "sponsor"})

	if err := h.InviteUser(c); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestUserHandler_SponsorInfo(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		sponsorFn: func(_ context.Context, sponsorID, code string) (*ports.SponsorInfo, error) {
			if sponsorID != "s-1" || code != "c-1" {
				t.Fatalf("unexpected args: %s %s", sponsorID, code)
			}
			return &ports.SponsorInfo{GivenNames: "Ana", FamilyNames: "Diaz", Email: "ana@example.com"}, nil
		},
	}
	h := NewUserHandler(stub, &recordingAudit{})

	c, rec := jsonContext(e, http.MethodGet, "/users/sponsor_info?sponsor_user_id=s-1&invitation_code=c-1", "")
	if err := h.SponsorInfo(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp sponsorInfoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.GivenNames != "Ana" || resp.Email != "ana@example.com" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestUserHandler_CreateUser(t *testing.T) {
	e := newEcho()
	audit := &recordingAudit{}
	stub := &stubUserService{
		createFn: func(_ context.Context, in ports.CreateUserInput) (*domain.User, error) {
			if in.Role != domain.RoleExpert || in.Language != domain.LanguageSpanish || in.InvitationCode != "c-1" {
				t.Fatalf("unexpected args: %+v", in)
			}
			return &domain.User{ID: "new-id"}, nil
		},
	}
	h := NewUserHandler(stub, audit)

	body := `{"email":"new@example.com","given_names":"Luis","family_names":"Paz","nickname":"lu",
		"language":"spanish","password":"Secret1!","sponsor_user_id":"s-1","invitation_code":"c-1",
		"anti_phishing_phrase":"blue whale","user_role":"expert"}`
	c, rec := jsonContext(e, http.MethodPost, "/users", body)

	if err := h.CreateUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp createUserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.ID != "new-id" {
		t.Fatalf("unexpected response %s (%v)", rec.Body.String(), err)
	}
	got := audit.last()
	if got.action != "created_user" {
		t.Fatalf("unexpected audit: %+v", got)
	}
	if _, leaked := got.data["password"]; leaked {
		t.Fatalf("password recorded in audit")
	}
}

func TestUserHandler_CreateUser_Conflict(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		createFn: func(context.Context, ports.CreateUserInput) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	}
	h := NewUserHandler(stub, &recordingAudit{})

	body := `{"email":"new@example.com","given_names":"Luis","family_names":"Paz","nickname":"lu",
		"language":"spanish","password":"Secret1!","anti_phishing_phrase":"blue whale","user_role":"staffer"}`
	c, _ := jsonContext(e, http.MethodPost, "/users", body)

	if err := h.CreateUser(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserHandler_Profile(t *testing.T) {
	e := newEcho()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	stub := &stubUserService{
		profileFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{
				ID:                 id,
				Email:              "ana@example.com",
				AntiPhishingPhrase: "purple otters",
				Role:               domain.RoleStaffer,
				State:              domain.StateActive,
				Language:           domain.LanguageEnglish,
				CreatedAt:          created,
				Passwords:          []domain.UserPassword{{Hash: "$2a$secret"}},
			}, nil
		},
	}
	h := NewUserHandler(stub, &recordingAudit{})

	c, rec := jsonContext(e, http.MethodGet, "/users", "")
	withUser(c, &domain.User{ID: "u-1"})

	if err := h.Profile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != "u-1" || resp.AntiPhishingPhrase != "purple otters" || resp.CreationDate != "2024-01-02 03:04:05" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Projects == nil {
		t.Fatalf("projects should render as an empty list")
	}
	if containsAny(rec.Body.String(), "$2a$secret", "passwords") {
		t.Fatalf("password data leaked: %s", rec.Body.String())
	}
}

func TestUserHandler_ColleaguesHidesPrivateFields(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		colleaguesFn: func(_ context.Context, current *domain.User) ([]*domain.User, error) {
			return []*domain.User{{ID: "u-2", Email: "bo@example.com", AntiPhishingPhrase: "secret", Nickname: "bo"}}, nil
		},
	}
	h := NewUserHandler(stub, &recordingAudit{})

	c, rec := jsonContext(e, http.MethodGet, "/users/list", "")
	withUser(c, &domain.User{ID: "u-1"})

	if err := h.Colleagues(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if containsAny(rec.Body.String(), "bo@example.com", "secret") {
		t.Fatalf("private fields leaked: %s", rec.Body.String())
	}
}

func TestUserHandler_UpdateContactInfo(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		contactFn: func(_ context.Context, user *domain.User, in ports.ContactInfoInput) error {
			if user.ID != "u-1" || in.Nickname != "neo" || in.AntiPhishingPhrase != "red pill" {
				t.Fatalf("unexpected args: %+v", in)
			}
			return nil
		},
	}
	h := NewUserHandler(stub, &recordingAudit{})

	c, rec := jsonContext(e, http.MethodPatch, "/users/contact_info", `{"nickname":"neo","anti_phishing_phrase":"red pill"}`)
	withUser(c, &domain.User{ID: "u-1"})

	if err := h.UpdateContactInfo(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("err=%v code=%d", err, rec.Code)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

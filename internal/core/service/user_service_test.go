package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

func newUserFixture(t *testing.T, requireInvitation bool) (*UserService, *stubUserRepo, *recordingNotifier, *domain.User) {
	t.Helper()
	clock := newTestClock()
	sponsor := newTestUser(t, "sponsor", "sponsor@example.com", testPassword, clock.Now())
	admin := newTestUser(t, "admin", "admin@example.com", testPassword, clock.Now())
	admin.Role = domain.RoleAdmin
	repo := newStubUserRepo(sponsor, admin)
	notifier := &recordingNotifier{}
	svc := NewUserService(repo, testPolicy(), notifier, requireInvitation, clock.Now, nopLogger)
	return svc, repo, notifier, repo.stored(t, "sponsor")
}

func TestUserService_InviteUser_ReusesInvitation(t *testing.T) {
	svc, repo, notifier, sponsor := newUserFixture(t, true)
	ctx := context.Background()

	if err := svc.InviteUser(ctx, sponsor, ports.InviteUserInput{Email: "New@Example.com", Language: domain.LanguageSpanish}); err != nil {
		t.Fatalf("InviteUser: %v", err)
	}
	first := repo.stored(t, "sponsor").Invitations
	if len(first) != 1 || first[0].Email != "new@example.com" {
		t.Fatalf("unexpected invitations %+v", first)
	}
	n := notifier.last(t)
	if n.Kind != domain.NotifyInvitation || n.Recipient != "new@example.com" || n.Language != domain.LanguageSpanish {
		t.Fatalf("unexpected notification %+v", n)
	}

	sponsor = repo.stored(t, "sponsor")
	if err := svc.InviteUser(ctx, sponsor, ports.InviteUserInput{Email: "new@example.com"}); err != nil {
		t.Fatalf("InviteUser again: %v", err)
	}
	second := repo.stored(t, "sponsor").Invitations
	if len(second) != 1 || second[0].ValidationCode != first[0].ValidationCode {
		t.Fatalf("expected the invitation to be reused, got %+v", second)
	}
}

func TestUserService_InviteUser_ExistingEmail(t *testing.T) {
	svc, _, _, sponsor := newUserFixture(t, true)

	err := svc.InviteUser(context.Background(), sponsor, ports.InviteUserInput{Email: "ADMIN@example.com"})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserService_CreateUser_WithInvitation(t *testing.T) {
	svc, repo, notifier, sponsor := newUserFixture(t, true)
	ctx := context.Background()
	if err := svc.InviteUser(ctx, sponsor, ports.InviteUserInput{Email: "new@example.com"}); err != nil {
		t.Fatalf("InviteUser: %v", err)
	}
	code := repo.stored(t, "sponsor").Invitations[0].ValidationCode

	info, err := svc.SponsorInfo(ctx, "sponsor", code)
	if err != nil {
		t.Fatalf("SponsorInfo: %v", err)
	}
	if info.GivenNames != "Ana" || info.FamilyNames != "Lopez" || info.Email != "sponsor@example.com" {
		t.Fatalf("unexpected sponsor info %+v", info)
	}

	in := ports.CreateUserInput{
		Email:          "new@example.com",
		GivenNames:     "Luis",
		FamilyNames:    "Perez",
		Nickname:       "lp",
		Language:       domain.LanguageEnglish,
		Password:       "Welcome1now!",
		SponsorUserID:  "sponsor",
		InvitationCode: "wrong",
		Role:           domain.RoleExpert,
	}
	if _, err := svc.CreateUser(ctx, in); !errors.Is(err, domain.ErrInvalidInvitation) {
		t.Fatalf("expected ErrInvalidInvitation, got %v", err)
	}

	in.InvitationCode = code
	user, err := svc.CreateUser(ctx, in)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.State != domain.StateInactive {
		t.Fatalf("new users start inactive, got %s", user.State)
	}
	if user.Role != domain.RoleExpert {
		t.Fatalf("unexpected role %s", user.Role)
	}
	if active, _ := user.ActivePassword(); active == nil || !testPolicy().Verify(active.Hash, "Welcome1now!") {
		t.Fatalf("expected a hashed active password")
	}
	if len(repo.stored(t, "sponsor").Invitations) != 0 {
		t.Fatalf("invitation should be consumed")
	}
	if n := notifier.last(t); n.Kind != domain.NotifyCreatedAccount || n.Recipient != "admin@example.com" {
		t.Fatalf("expected admin notice, got %+v", n)
	}

	if _, err := svc.SponsorInfo(ctx, "sponsor", code); !errors.Is(err, domain.ErrInvalidInvitation) {
		t.Fatalf("expected consumed invitation to be rejected, got %v", err)
	}
}

func TestUserService_SponsorInfo_InvitationAlreadyUsed(t *testing.T) {
	svc, repo, _, sponsor := newUserFixture(t, false)
	ctx := context.Background()
	if err := svc.InviteUser(ctx, sponsor, ports.InviteUserInput{Email: "new@example.com"}); err != nil {
		t.Fatalf("InviteUser: %v", err)
	}
	code := repo.stored(t, "sponsor").Invitations[0].ValidationCode

	if _, err := svc.CreateUser(ctx, ports.CreateUserInput{Email: "new@example.com", Password: "Welcome1now!"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.SponsorInfo(ctx, "sponsor", code); !errors.Is(err, domain.ErrInvitationAlreadyUsed) {
		t.Fatalf("expected ErrInvitationAlreadyUsed, got %v", err)
	}
	if _, err := svc.SponsorInfo(ctx, "missing", code); !errors.Is(err, domain.ErrSponsorNotFound) {
		t.Fatalf("expected ErrSponsorNotFound, got %v", err)
	}
}

func TestUserService_CreateUser_Rejections(t *testing.T) {
	svc, _, _, _ := newUserFixture(t, false)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, ports.CreateUserInput{Email: "SPONSOR@example.com", Password: "Welcome1now!"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if _, err := svc.CreateUser(ctx, ports.CreateUserInput{Email: "x@example.com", Password: "weak"}); !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	u, err := svc.CreateUser(ctx, ports.CreateUserInput{Email: "x@example.com", Password: "Welcome1now!", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Role != domain.RoleStaffer {
		t.Fatalf("signup must not grant admin, got %s", u.Role)
	}
	if u.Language != domain.LanguageSpanish {
		t.Fatalf("expected default language, got %s", u.Language)
	}
}

func TestUserService_CreateUser_UnknownSponsor(t *testing.T) {
	svc, _, _, _ := newUserFixture(t, true)

	_, err := svc.CreateUser(context.Background(), ports.CreateUserInput{Email: "x@example.com", Password: "Welcome1now!", SponsorUserID: "nobody"})
	if !errors.Is(err, domain.ErrSponsorNotFound) {
		t.Fatalf("expected ErrSponsorNotFound, got %v", err)
	}
}

func TestUserService_Colleagues(t *testing.T) {
	svc, repo, _, sponsor := newUserFixture(t, false)
	ctx := context.Background()
	inactive := newTestUser(t, "inactive", "inactive@example.com", testPassword, newTestClock().Now())
	inactive.State = domain.StateInactive
	peer := newTestUser(t, "peer", "peer@example.com", testPassword, newTestClock().Now())
	_ = repo.Insert(ctx, inactive)
	_ = repo.Insert(ctx, peer)

	got, err := svc.Colleagues(ctx, sponsor)
	if err != nil {
		t.Fatalf("Colleagues: %v", err)
	}
	if len(got) != 1 || got[0].ID != "peer" {
		t.Fatalf("expected only peer, got %d users", len(got))
	}
}

func TestUserService_UpdateContactInfo(t *testing.T) {
	svc, repo, _, sponsor := newUserFixture(t, false)

	err := svc.UpdateContactInfo(context.Background(), sponsor, ports.ContactInfoInput{Nickname: "ana", AntiPhishingPhrase: "red fox"})
	if err != nil {
		t.Fatalf("UpdateContactInfo: %v", err)
	}
	stored := repo.stored(t, "sponsor")
	if stored.Nickname != "ana" || stored.AntiPhishingPhrase != "red fox" {
		t.Fatalf("contact info not persisted: %+v", stored)
	}
}

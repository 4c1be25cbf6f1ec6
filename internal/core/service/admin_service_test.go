package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

func TestAdminService_Bootstrap(t *testing.T) {
	clock := newTestClock()
	repo := newStubUserRepo()
	svc := NewAdminService(repo, testPolicy(), &recordingNotifier{}, AdminConfig{AdminEmail: "Root@Example.com"}, clock.Now, nopLogger)
	ctx := context.Background()

	created, err := svc.Bootstrap(ctx)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if !created {
		t.Fatalf("expected admin to be created on an empty store")
	}
	admin, err := repo.FindByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("admin not stored: %v", err)
	}
	if admin.Role != domain.RoleAdmin || admin.State != domain.StateActive {
		t.Fatalf("unexpected admin %+v", admin)
	}
	if active, _ := admin.ActivePassword(); active == nil {
		t.Fatalf("admin needs an active password")
	}

	created, err = svc.Bootstrap(ctx)
	if err != nil || created {
		t.Fatalf("second bootstrap must be a no-op: created=%v err=%v", created, err)
	}
}

func TestRandomPassword_IsStrong(t *testing.T) {
	for i := 0; i < 20; i++ {
		p, err := randomPassword()
		if err != nil {
			t.Fatalf("randomPassword: %v", err)
		}
		if !IsStrongPassword(p) {
			t.Fatalf("generated password %q fails the strict profile", p)
		}
	}
}

func TestAdminService_ReactivateUser(t *testing.T) {
	clock := newTestClock()
	locked := newTestUser(t, "u1", "u1@example.com", testPassword, clock.Now())
	_ = locked.Inactivate()
	repo := newStubUserRepo(locked)
	notifier := &recordingNotifier{}
	svc := NewAdminService(repo, testPolicy(), notifier, AdminConfig{}, clock.Now, nopLogger)
	ctx := context.Background()

	inactive, err := svc.InactiveUsers(ctx)
	if err != nil || len(inactive) != 1 {
		t.Fatalf("expected one inactive user, got %d (%v)", len(inactive), err)
	}

	if err := svc.ReactivateUser(ctx, "u1"); err != nil {
		t.Fatalf("ReactivateUser: %v", err)
	}
	stored := repo.stored(t, "u1")
	if stored.State != domain.StateActive {
		t.Fatalf("expected active user")
	}
	if stored.ResetPasswordToken == nil || !stored.ResetPasswordToken.ExpiresAt.Equal(clock.Now().Add(30*24*time.Hour)) {
		t.Fatalf("expected a 30 day reset token, got %+v", stored.ResetPasswordToken)
	}
	n := notifier.last(t)
	if n.Kind != domain.NotifyReactivatedAccount || n.Data["reset_token"] != stored.ResetPasswordToken.Token {
		t.Fatalf("unexpected notification %+v", n)
	}

	auth := NewAuthService(repo, testPolicy(), newTestTokens(clock), notifier, DefaultFlowConfig(), clock.Now, nopLogger)
	err = auth.ResetPassword(ctx, ports.ResetPasswordInput{UserID: "u1", NewPassword: "Another2two!", Token: stored.ResetPasswordToken.Token})
	if err != nil {
		t.Fatalf("ResetPassword with reactivation token: %v", err)
	}

	if err := svc.ReactivateUser(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAdminService_Messages(t *testing.T) {
	clock := newTestClock()
	en := newTestUser(t, "en", "en@example.com", testPassword, clock.Now())
	es := newTestUser(t, "es", "es@example.com", testPassword, clock.Now())
	es.Language = domain.LanguageSpanish
	admin := newTestUser(t, "admin", "admin@example.com", testPassword, clock.Now())
	admin.Role = domain.RoleAdmin

	notifier := &recordingNotifier{}
	svc := NewAdminService(newStubUserRepo(en, es, admin), testPolicy(), notifier, AdminConfig{}, clock.Now, nopLogger)
	ctx := context.Background()

	info, err := svc.UsersInfo(ctx)
	if err != nil || len(info) != 2 {
		t.Fatalf("expected two non-admin users, got %d (%v)", len(info), err)
	}

	if err := svc.SendMessageToUser(ctx, ports.MessageInput{UserID: "es", Subject: "Hola", Message: "Bienvenida"}); err != nil {
		t.Fatalf("SendMessageToUser: %v", err)
	}
	n := notifier.last(t)
	if n.Kind != domain.NotifyMessageToUser || n.Subject != "Hola" || n.Data["message"] != "Bienvenida" || n.Recipient != "es@example.com" {
		t.Fatalf("unexpected notification %+v", n)
	}

	sent, err := svc.SendMessageToAllUsers(ctx, ports.BroadcastInput{Subject: "News", Message: "Hi", Language: domain.LanguageEnglish})
	if err != nil {
		t.Fatalf("SendMessageToAllUsers: %v", err)
	}
	if sent != 1 || notifier.last(t).Recipient != "en@example.com" {
		t.Fatalf("expected only the english speaker, sent=%d", sent)
	}

	if _, err := svc.SendMessageToAllUsers(ctx, ports.BroadcastInput{Language: "klingon"}); !errors.Is(err, domain.ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}
}

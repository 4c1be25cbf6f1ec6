package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	updates int

	findErr   error
	updateErr error
	listErr   error
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u.Clone()
	}
	return r
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if domain.NormalizeEmail(u.Email) == domain.NormalizeEmail(email) {
			return u.Clone(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *stubUserRepo) Insert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if domain.NormalizeEmail(u.Email) == domain.NormalizeEmail(user.Email) {
			return domain.ErrUserExists
		}
	}
	r.users[user.ID] = user.Clone()
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.users[user.ID] = user.Clone()
	r.updates++
	return nil
}

// stored returns the persisted copy of id.
func (r *stubUserRepo) stored(t *testing.T, id string) *domain.User {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		t.Fatalf("user %s not stored", id)
	}
	return u.Clone()
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationKind, len(n.sent))
	for i, msg := range n.sent {
		out[i] = msg.Kind
	}
	return out
}

func (n *recordingNotifier) last(t *testing.T) domain.Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatalf("no notification sent")
	}
	return n.sent[len(n.sent)-1]
}

// testClock is a mutable clock for tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testPolicy() *PasswordPolicy {
	return NewPasswordPolicy(PolicyConfig{Profile: ProfileStrict, BcryptCost: bcrypt.MinCost})
}

// newTestUser returns an active user whose single active password is password.
func newTestUser(t *testing.T, id, email, password string, now time.Time) *domain.User {
	t.Helper()
	hash, err := testPolicy().Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &domain.User{
		ID:                 id,
		Email:              email,
		GivenNames:         "Ana Maria",
		FamilyNames:        "Lopez Diaz",
		Nickname:           id,
		Language:           domain.LanguageEnglish,
		Role:               domain.RoleStaffer,
		AntiPhishingPhrase: "blue whale",
		State:              domain.StateActive,
		CreatedAt:          now,
		Passwords: []domain.UserPassword{{
			Hash:      hash,
			ExpiresAt: now.Add(60 * 24 * time.Hour),
			State:     domain.StateActive,
		}},
	}
}

var nopLogger = zerolog.Nop()

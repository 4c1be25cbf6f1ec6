package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/ainterviewer/identity-service/internal/api/middleware"
	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

type stubAuthService struct {
	loginFn    func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error)
	logoutFn   func(ctx context.Context, refreshToken string) error
	refreshFn  func(ctx context.Context, refreshToken string) (*ports.AccessToken, error)
	changeFn   func(ctx context.Context, in ports.ChangePasswordInput) error
	forgotFn   func(ctx context.Context, email string) error
	resetFn    func(ctx context.Context, in ports.ResetPasswordInput) error
	reassignFn func(ctx context.Context, in ports.ReassignExpiredPasswordInput) error
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.logoutFn(ctx, refreshToken)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (*ports.AccessToken, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, in ports.ChangePasswordInput) error {
	return s.changeFn(ctx, in)
}

func (s *stubAuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.forgotFn(ctx, email)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, in ports.ResetPasswordInput) error {
	return s.resetFn(ctx, in)
}

func (s *stubAuthService) ReassignExpiredPassword(ctx context.Context, in ports.ReassignExpiredPasswordInput) error {
	return s.reassignFn(ctx, in)
}

func (s *stubAuthService) Authenticate(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrInvalidToken
}

type stubUserService struct {
	inviteFn     func(ctx context.Context, sponsor *domain.User, in ports.InviteUserInput) error
	sponsorFn    func(ctx context.Context, sponsorID, code string) (*ports.SponsorInfo, error)
	createFn     func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error)
	profileFn    func(ctx context.Context, userID string) (*domain.User, error)
	colleaguesFn func(ctx context.Context, current *domain.User) ([]*domain.User, error)
	contactFn    func(ctx context.Context, user *domain.User, in ports.ContactInfoInput) error
}

func (s *stubUserService) InviteUser(ctx context.Context, sponsor *domain.User, in ports.InviteUserInput) error {
	return s.inviteFn(ctx, sponsor, in)
}

func (s *stubUserService) SponsorInfo(ctx context.Context, sponsorID, code string) (*ports.SponsorInfo, error) {
	return s.sponsorFn(ctx, sponsorID, code)
}

func (s *stubUserService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	return s.createFn(ctx, in)
}

func (s *stubUserService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.profileFn(ctx, userID)
}

func (s *stubUserService) Colleagues(ctx context.Context, current *domain.User) ([]*domain.User, error) {
	return s.colleaguesFn(ctx, current)
}

func (s *stubUserService) UpdateContactInfo(ctx context.Context, user *domain.User, in ports.ContactInfoInput) error {
	return s.contactFn(ctx, user, in)
}

type stubAdminService struct {
	inactiveFn   func(ctx context.Context) ([]*domain.User, error)
	reactivateFn func(ctx context.Context, userID string) error
	usersInfoFn  func(ctx context.Context) ([]*domain.User, error)
	messageFn    func(ctx context.Context, in ports.MessageInput) error
	broadcastFn  func(ctx context.Context, in ports.BroadcastInput) (int, error)
}

func (s *stubAdminService) InactiveUsers(ctx context.Context) ([]*domain.User, error) {
	return s.inactiveFn(ctx)
}

func (s *stubAdminService) ReactivateUser(ctx context.Context, userID string) error {
	return s.reactivateFn(ctx, userID)
}

func (s *stubAdminService) UsersInfo(ctx context.Context) ([]*domain.User, error) {
	return s.usersInfoFn(ctx)
}

func (s *stubAdminService) SendMessageToUser(ctx context.Context, in ports.MessageInput) error {
	return s.messageFn(ctx, in)
}

func (s *stubAdminService) SendMessageToAllUsers(ctx context.Context, in ports.BroadcastInput) (int, error) {
	return s.broadcastFn(ctx, in)
}

type auditCall struct {
	actor  string
	action string
	data   map[string]string
	failed bool
}

type recordingAudit struct {
	mu    sync.Mutex
	calls []auditCall
}

func (a *recordingAudit) Record(_ context.Context, actor, action string, data map[string]string, cause error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, auditCall{actor: actor, action: action, data: data, failed: cause != nil})
}

func (a *recordingAudit) last() auditCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.calls) == 0 {
		return auditCall{}
	}
	return a.calls[len(a.calls)-1]
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withUser(c echo.Context, u *domain.User) echo.Context {
	c.Set(middleware.UserKey, u)
	return c
}

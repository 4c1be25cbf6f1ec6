package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ainterviewer/identity-service/internal/api/metrics"
	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

// SecurityHandler serves login, session and password lifecycle endpoints.
type SecurityHandler struct {
	auth         ports.AuthService
	audit        ports.AuditService
	secureCookie bool
}

func NewSecurityHandler(auth ports.AuthService, audit ports.AuditService, secureCookie bool) *SecurityHandler {
	return &SecurityHandler{auth: auth, audit: audit, secureCookie: secureCookie}
}

// --- Request / Response types ---

// loginRequest accepts the OAuth2 password form (username) as well as JSON.
type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required_without=Email"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (r loginRequest) login() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

type changePasswordRequest struct {
	Password    string `json:"password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetPasswordRequest struct {
	UserID             string `json:"user_id" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required"`
	ResetPasswordToken string `json:"reset_password_token" validate:"required"`
}

type reassignExpiredPasswordRequest struct {
	UserID               string `json:"user_id" validate:"required"`
	Password             string `json:"password" validate:"required"`
	ExpiredPasswordToken string `json:"expired_password_token" validate:"required"`
}

func newTokenResponse(access *ports.AccessToken) tokenResponse {
	return tokenResponse{
		AccessToken: access.Token,
		TokenType:   "bearer",
		ExpiresAt:   access.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// Login handles POST /security/login.
//
// @Summary      Login
// @Tags         security
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /security/login [post]
func (h *SecurityHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	source := sourceOf(c)

	result, err := h.auth.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.login(),
		Password: req.Password,
		Source:   source,
	})
	metrics.LoginsTotal.WithLabelValues(loginOutcome(err)).Inc()
	h.audit.Record(c.Request().Context(), "", "logged_in", map[string]string{"user": req.login(), "source": source}, err)
	if err != nil {
		return err
	}

	setRefreshCookie(c, result.RefreshToken, result.RefreshExpiresAt, h.secureCookie)
	return c.JSON(http.StatusOK, newTokenResponse(&result.Access))
}

// Logout handles POST /security/logout.
//
// @Summary      Logout the current device
// @Tags         security
// @Produce      json
// @Success      200  {boolean}  true
// @Failure      401  {object}   map[string]string
// @Router       /security/logout [post]
func (h *SecurityHandler) Logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), refreshTokenFrom(c)); err != nil {
		return err
	}
	clearRefreshCookie(c, h.secureCookie)
	return c.JSON(http.StatusOK, true)
}

// Refresh handles PATCH /security/refresh.
//
// @Summary      Issue a new access token from the refresh cookie
// @Tags         security
// @Produce      json
// @Success      200  {object}  tokenResponse
// @Failure      401  {object}  map[string]string
// @Router       /security/refresh [patch]
func (h *SecurityHandler) Refresh(c echo.Context) error {
	access, err := h.auth.Refresh(c.Request().Context(), refreshTokenFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newTokenResponse(access))
}

// ChangePassword handles PATCH /security/change_password.
//
// @Summary      Change the current user's password
// @Tags         security
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {boolean} true
// @Failure      400   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /security/change_password [patch]
func (h *SecurityHandler) ChangePassword(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	source := sourceOf(c)

	err = h.auth.ChangePassword(c.Request().Context(), ports.ChangePasswordInput{
		UserID:       user.ID,
		Password:     req.Password,
		NewPassword:  req.NewPassword,
		RefreshToken: refreshTokenFrom(c),
		Source:       source,
	})
	h.audit.Record(c.Request().Context(), user.ID, "changed_password", map[string]string{"source": source}, err)
	if err != nil {
		return err
	}
	metrics.PasswordChangesTotal.WithLabelValues("change").Inc()
	return c.JSON(http.StatusOK, true)
}

// ForgotPassword handles PATCH /security/forgot_password. It answers the same
// way whether or not the email is registered.
//
// @Summary      Send a password reset link
// @Tags         security
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {boolean} true
// @Router       /security/forgot_password [patch]
func (h *SecurityHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.auth.ForgotPassword(c.Request().Context(), req.Email)
	h.audit.Record(c.Request().Context(), "", "forgot_password", map[string]string{"email": req.Email}, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, true)
}

// ResetPassword handles PATCH /security/reset_password.
//
// @Summary      Set a new password with a reset token
// @Tags         security
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {boolean} true
// @Failure      400   {object}  map[string]string
// @Failure      405   {object}  map[string]string
// @Router       /security/reset_password [patch]
func (h *SecurityHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	source := sourceOf(c)

	err := h.auth.ResetPassword(c.Request().Context(), ports.ResetPasswordInput{
		UserID:      req.UserID,
		NewPassword: req.NewPassword,
		Token:       req.ResetPasswordToken,
		Source:      source,
	})
	h.audit.Record(c.Request().Context(), "", "reset_password", map[string]string{"user_id": req.UserID, "source": source}, err)
	if err != nil {
		return err
	}
	metrics.PasswordChangesTotal.WithLabelValues("reset").Inc()
	clearRefreshCookie(c, h.secureCookie)
	return c.JSON(http.StatusOK, true)
}

// ReassignExpiredPassword handles PATCH /security/reassign_expired_password.
//
// @Summary      Replace an expired password
// @Tags         security
// @Accept       json
// @Produce      json
// @Param        body  body      reassignExpiredPasswordRequest  true  "Expired-password token and new password"
// @Success      200   {boolean} true
// @Failure      400   {object}  map[string]string
// @Failure      405   {object}  map[string]string
// @Router       /security/reassign_expired_password [patch]
func (h *SecurityHandler) ReassignExpiredPassword(c echo.Context) error {
	var req reassignExpiredPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.auth.ReassignExpiredPassword(c.Request().Context(), ports.ReassignExpiredPasswordInput{
		UserID:      req.UserID,
		NewPassword: req.Password,
		Token:       req.ExpiredPasswordToken,
	})
	h.audit.Record(c.Request().Context(), "", "reassigned_expired_password", map[string]string{"user_id": req.UserID}, err)
	if err != nil {
		return err
	}
	metrics.PasswordChangesTotal.WithLabelValues("reassign_expired").Inc()
	return c.JSON(http.StatusOK, true)
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountLockedOut):
		return "locked_out"
	case errors.Is(err, domain.ErrPasswordExpired):
		return "password_expired"
	case errors.Is(err, domain.ErrUserNotFound):
		return "unknown_user"
	default:
		return "error"
	}
}

package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mssola/useragent"

	"github.com/ainterviewer/identity-service/internal/api/middleware"
	"github.com/ainterviewer/identity-service/internal/core/domain"
)

const refreshCookieName = "refresh_token"

// currentUser returns the user injected by the Auth middleware. Its absence
// means the route was wired without Auth.
func currentUser(c echo.Context) (*domain.User, error) {
	user, ok := c.Get(middleware.UserKey).(*domain.User)
	if !ok || user == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return user, nil
}

// bindAndValidate decodes the request into req and runs the struct validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

// sourceOf describes the calling device as "OS, Browser".
func sourceOf(c echo.Context) string {
	raw := c.Request().UserAgent()
	if raw == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	system := ua.OS()
	if system == "" {
		system = "unknown"
	}
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "unknown"
	}
	return system + ", " + browser
}

// refreshTokenFrom reads the session cookie; empty when absent.
func refreshTokenFrom(c echo.Context) string {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func setRefreshCookie(c echo.Context, token string, expiresAt time.Time, secure bool) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

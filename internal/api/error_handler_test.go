package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

func TestHTTPErrorHandler_MapsKinds(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrUserNotFound, http.StatusNotFound, "user-not-found"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid-credentials"},
		{domain.ErrAccountLockedOut, http.StatusUnauthorized, "user-inactivated-for-max-attempts"},
		{domain.ErrNotAuthenticated, http.StatusUnauthorized, "user-not-authenticated"},
		{domain.ErrPasswordExpired, http.StatusForbidden, "password-expired"},
		{domain.ErrForbidden, http.StatusForbidden, "not-allowed-action"},
		{domain.ErrPasswordAlreadyUsed, http.StatusBadRequest, "password-already-used"},
		{domain.ErrInvalidResetToken, http.StatusBadRequest, "invalid-reset-password-token"},
		{domain.ErrWeakPassword, http.StatusUnprocessableEntity, "invalid-password"},
		{domain.ErrNotAllowedToChangePassword, http.StatusMethodNotAllowed, "not-allowed-to-change-password"},
		{domain.ErrUserExists, http.StatusConflict, "user-already-exist-with-email"},
		{fmt.Errorf("find user: %w", domain.ErrStorage), http.StatusServiceUnavailable, "storage-unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal-error"},
		{echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
	}

	handler := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.wantCode, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler(tc.err, c)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body["error"] != tc.wantCode {
				t.Fatalf("expected error %q, got %q", tc.wantCode, body["error"])
			}
		})
	}
}

func TestHTTPErrorHandler_CommittedResponse(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = c.NoContent(http.StatusNoContent)

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrUserNotFound, c)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("committed response was overwritten: %d", rec.Code)
	}
}

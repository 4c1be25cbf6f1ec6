package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// kindStatus maps core error kinds to HTTP status codes.
var kindStatus = map[domain.ErrorKind]int{
	domain.KindNotFound:                    http.StatusNotFound,
	domain.KindInvalidCredentials:          http.StatusUnauthorized,
	domain.KindNotAuthenticated:            http.StatusUnauthorized,
	domain.KindAccountLockedOut:            http.StatusUnauthorized,
	domain.KindPasswordExpired:             http.StatusForbidden,
	domain.KindForbidden:                   http.StatusForbidden,
	domain.KindPasswordsDoNotMatch:         http.StatusBadRequest,
	domain.KindPasswordAlreadyUsed:         http.StatusBadRequest,
	domain.KindInvalidResetToken:           http.StatusBadRequest,
	domain.KindInvalidExpiredPasswordToken: http.StatusBadRequest,
	domain.KindInvalidInvitation:           http.StatusBadRequest,
	domain.KindValidation:                  http.StatusUnprocessableEntity,
	domain.KindNotAllowedToChangePassword:  http.StatusMethodNotAllowed,
	domain.KindConflict:                    http.StatusConflict,
	domain.KindInfrastructure:              http.StatusServiceUnavailable,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps core error kinds to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<code>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	kind := domain.KindOf(err)
	if status, ok := kindStatus[kind]; ok {
		if kind == domain.KindInfrastructure {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("storage unavailable")
		}
		return status, domain.CodeOf(err)
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal-error"
}

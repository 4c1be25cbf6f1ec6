package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/ainterviewer/identity-service/docs"
	"github.com/ainterviewer/identity-service/internal/api/handler"
	"github.com/ainterviewer/identity-service/internal/api/middleware"
	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

// Dependencies are the services and probes the HTTP layer is built from.
type Dependencies struct {
	Auth  ports.AuthService
	Users ports.UserService
	Admin ports.AdminService
	Audit ports.AuditService

	// Health lists the dependencies checked by /health/ready, by name.
	Health map[string]handler.Pinger

	SecureCookie bool
	Log          zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddleware("identity_http"))

	securityHandler := handler.NewSecurityHandler(deps.Auth, deps.Audit, deps.SecureCookie)
	userHandler := handler.NewUserHandler(deps.Users, deps.Audit)
	adminHandler := handler.NewAdminHandler(deps.Admin, deps.Audit)
	healthHandler := handler.NewHealthHandler(deps.Health)
	authMiddleware := middleware.Auth(deps.Auth)

	// --- Security routes ---
	security := e.Group("/security")
	security.POST("/login", securityHandler.Login)
	security.POST("/logout", securityHandler.Logout)
	security.PATCH("/refresh", securityHandler.Refresh)
	security.PATCH("/change_password", securityHandler.ChangePassword, authMiddleware)
	security.PATCH("/forgot_password", securityHandler.ForgotPassword)
	security.PATCH("/reset_password", securityHandler.ResetPassword)
	security.PATCH("/reassign_expired_password", securityHandler.ReassignExpiredPassword)

	// --- User routes ---
	users := e.Group("/users")
	users.POST("", userHandler.CreateUser)
	users.GET("/sponsor_info", userHandler.SponsorInfo)
	users.GET("", userHandler.Profile, authMiddleware)
	users.GET("/list", userHandler.Colleagues, authMiddleware)
	users.POST("/invite_user", userHandler.InviteUser, authMiddleware)
	users.PATCH("/contact_info", userHandler.UpdateContactInfo, authMiddleware)

	// --- Admin routes (admin role only) ---
	admin := e.Group("/admin", authMiddleware, middleware.RBAC(domain.RoleAdmin))
	admin.GET("/inactive_users", adminHandler.InactiveUsers)
	admin.POST("/reactivate_user", adminHandler.ReactivateUser)
	admin.GET("/users_info", adminHandler.UsersInfo)
	admin.POST("/send_message_to_user", adminHandler.SendMessageToUser)
	admin.POST("/send_message_to_all_users", adminHandler.SendMessageToAllUsers)

	// --- Ops (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil {
				event = log.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

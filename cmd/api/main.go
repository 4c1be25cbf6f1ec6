package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ainterviewer/identity-service/internal/api"
	"github.com/ainterviewer/identity-service/internal/api/handler"
	"github.com/ainterviewer/identity-service/internal/app"
	"github.com/ainterviewer/identity-service/internal/core/service"
	redisstore "github.com/ainterviewer/identity-service/internal/infrastructure/db/redis"
	"github.com/ainterviewer/identity-service/internal/infrastructure/scheduler"
	"github.com/ainterviewer/identity-service/internal/pkg/config"
	"github.com/ainterviewer/identity-service/pkg/logger"
)

// @title                       Identity Service API
// @version                     1.0
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "identity-api",
		Env:     cfg.Env,
	})

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWTSecret}, service.SystemClock)
	flow := service.DefaultFlowConfig()
	flow.MaxPasswordAttempts = cfg.Security.MaxPasswordAttempts

	authService := service.NewAuthService(a.Users, a.Policy, tokens, a.Dispatcher, flow, service.SystemClock, log)
	userService := service.NewUserService(a.Users, a.Policy, a.Dispatcher, cfg.Security.RequireInvitation, service.SystemClock, log)
	adminService := service.NewAdminService(a.Users, a.Policy, a.Dispatcher,
		service.AdminConfig{AdminEmail: cfg.AdminEmail}, service.SystemClock, log)
	auditService := service.NewAuditService(a.Audit, service.SystemClock, log)

	if _, err := adminService.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("admin bootstrap failed")
	}

	health := map[string]handler.Pinger{"mongodb": a.Store}

	var sched *scheduler.Scheduler
	if cfg.Sweeper.InProcess {
		if err := a.ConnectRedis(ctx); err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		health["redis"] = redisstore.Pinger{Client: a.Redis}
		if sched, err = a.Scheduler(); err != nil {
			log.Fatal().Err(err).Msg("sweeper scheduler setup failed")
		}
		sched.Start()
	}

	e := api.NewRouter(api.Dependencies{
		Auth:         authService,
		Users:        userService,
		Admin:        adminService,
		Audit:        auditService,
		Health:       health,
		SecureCookie: cfg.CookieSecure,
		Log:          log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("sweeper still running at shutdown")
		}
	}
	a.Close(shutdownCtx)
	log.Info().Msg("server exited properly")
}

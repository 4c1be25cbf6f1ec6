package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ainterviewer/identity-service/internal/app"
	"github.com/ainterviewer/identity-service/internal/pkg/config"
	"github.com/ainterviewer/identity-service/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "identity-sweeper",
		Env:     cfg.Env,
	})

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	if err := a.ConnectRedis(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}

	sched, err := a.Scheduler()
	if err != nil {
		log.Fatal().Err(err).Msg("sweeper scheduler setup failed")
	}

	if *once {
		sched.RunNow(ctx)
	} else {
		sched.Start()
		log.Info().Str("schedule", cfg.Sweeper.Schedule).Msg("ready to run sweeps")

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("stopping sweeper")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("sweep still running at shutdown")
	}
	a.Close(shutdownCtx)
}

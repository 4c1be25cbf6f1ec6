// Package app wires the infrastructure shared by the service binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ainterviewer/identity-service/internal/core/service"
	"github.com/ainterviewer/identity-service/internal/infrastructure/crypto"
	mongostore "github.com/ainterviewer/identity-service/internal/infrastructure/db/mongo"
	redisstore "github.com/ainterviewer/identity-service/internal/infrastructure/db/redis"
	"github.com/ainterviewer/identity-service/internal/infrastructure/mail"
	"github.com/ainterviewer/identity-service/internal/infrastructure/queue"
	"github.com/ainterviewer/identity-service/internal/infrastructure/scheduler"
	"github.com/ainterviewer/identity-service/internal/pkg/config"
)

// App holds the long-lived clients of one process.
type App struct {
	Config     *config.Config
	Log        zerolog.Logger
	Store      *mongostore.Store
	Users      *mongostore.UserRepository
	Audit      *mongostore.AuditRepository
	Redis      *goredis.Client
	Policy     *service.PasswordPolicy
	Dispatcher *queue.Dispatcher
}

// New connects MongoDB, creates the indexes and starts the notification
// dispatcher.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	codec, err := crypto.NewFieldCodec(cfg.Security.FieldEncryption, cfg.Security.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("field codec: %w", err)
	}
	if !cfg.Security.FieldEncryption {
		log.Warn().Msg("field encryption disabled, personal data is stored in clear text")
	}

	store, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	users := mongostore.NewUserRepository(store.Database(), codec)
	audit := mongostore.NewAuditRepository(store.Database())
	if err := store.EnsureIndexes(ctx, users, audit); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	dispatcher, err := newDispatcher(cfg, log)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	dispatcher.Start()

	return &App{
		Config:     cfg,
		Log:        log,
		Store:      store,
		Users:      users,
		Audit:      audit,
		Policy:     newPolicy(cfg),
		Dispatcher: dispatcher,
	}, nil
}

func newPolicy(cfg *config.Config) *service.PasswordPolicy {
	policy := service.DefaultPolicyConfig()
	policy.Profile = cfg.Security.PasswordPolicy
	policy.BcryptCost = cfg.Security.BcryptCost
	policy.PasswordTTL = cfg.Security.PasswordTTL
	return service.NewPasswordPolicy(policy)
}

func newDispatcher(cfg *config.Config, log zerolog.Logger) (*queue.Dispatcher, error) {
	renderer, err := mail.NewRenderer(cfg.WebUIPath)
	if err != nil {
		return nil, fmt.Errorf("email templates: %w", err)
	}

	var mailer mail.Mailer
	if cfg.MailgunEnabled() {
		mailer = mail.NewMailgun(cfg.Mail.MailgunDomain, cfg.Mail.MailgunAPIKey, cfg.Mail.Sender)
	} else {
		log.Warn().Msg("mailgun not configured, emails are written to the log")
		mailer = mail.NewLogMailer(log)
	}

	return queue.NewDispatcher(cfg.Mail.NotifyWorkers, mail.NewEmailSender(renderer, mailer), log), nil
}

// ConnectRedis opens the coordination Redis used by the sweeper lock.
func (a *App) ConnectRedis(ctx context.Context) error {
	client, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err != nil {
		return err
	}
	a.Redis = client
	return nil
}

// Scheduler builds the cron scheduler running the expiration sweeper under
// the Redis lock. ConnectRedis must have succeeded.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	if a.Redis == nil {
		return nil, errors.New("sweeper scheduler requires redis")
	}
	sweeper := service.NewExpirationSweeper(a.Users, a.Policy, a.Dispatcher, service.SystemClock, a.Log)
	lock := redisstore.NewLock(a.Redis, "password-sweeper", a.Config.Sweeper.LockTTL)
	job := scheduler.NewSweepJob(sweeper, lock, a.Log)
	return scheduler.New(a.Config.Sweeper.Schedule, job, a.Log)
}

// Close drains pending notifications and closes every client.
func (a *App) Close(ctx context.Context) {
	if err := a.Dispatcher.Shutdown(ctx); err != nil {
		a.Log.Warn().Err(err).Msg("notification queue not fully drained")
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if err := a.Store.Close(ctx); err != nil {
		a.Log.Warn().Err(err).Msg("mongo disconnect failed")
	}
}

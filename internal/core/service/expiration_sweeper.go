package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

// SweepReport summarises one sweeper pass.
type SweepReport struct {
	Scanned  int
	Expired  int
	Notified int
	Failed   int
}

// ExpirationSweeper expires passwords past their expiration date and warns
// users whose password is about to expire. Each run scans every user.
type ExpirationSweeper struct {
	users    ports.UserRepository
	policy   *PasswordPolicy
	notifier ports.Notifier
	now      Clock
	log      zerolog.Logger
}

func NewExpirationSweeper(
	users ports.UserRepository,
	policy *PasswordPolicy,
	notifier ports.Notifier,
	clock Clock,
	log zerolog.Logger,
) *ExpirationSweeper {
	if clock == nil {
		clock = SystemClock
	}
	return &ExpirationSweeper{
		users:    users,
		policy:   policy,
		notifier: notifier,
		now:      clock,
		log:      log,
	}
}

// Run performs one pass. A failure on a single user is logged and counted; the
// pass only fails when the user list cannot be read.
func (s *ExpirationSweeper) Run(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	users, err := s.users.List(ctx)
	if err != nil {
		return report, fmt.Errorf("sweep: %w", err)
	}

	now := s.now()
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		password, err := user.ActivePassword()
		if err != nil {
			report.Failed++
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("sweep: skipping user")
			continue
		}
		if password == nil {
			continue
		}

		if !now.Before(password.ExpiresAt) {
			if err := s.expire(ctx, user); err != nil {
				report.Failed++
				s.log.Error().Err(err).Str("user_id", user.ID).Msg("sweep: failed to expire password")
				continue
			}
			report.Expired++
			continue
		}

		if days, near := s.policy.NearExpiry(password.ExpiresAt, now); near {
			s.notifier.Notify(ctx, domain.NotificationFor(user, domain.NotifyPasswordNearExpiry, map[string]string{
				"days": strconv.Itoa(days),
			}))
			report.Notified++
		}
	}

	s.log.Info().
		Int("scanned", report.Scanned).
		Int("expired", report.Expired).
		Int("notified", report.Notified).
		Int("failed", report.Failed).
		Msg("password expiration sweep finished")
	return report, nil
}

func (s *ExpirationSweeper) expire(ctx context.Context, user *domain.User) error {
	if err := user.ExpireActivePassword(); err != nil {
		return err
	}
	user.ExpiredPasswordToken = uuid.NewString()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	s.notifier.Notify(ctx, domain.NotificationFor(user, domain.NotifyPasswordExpired, map[string]string{
		"expired_password_token": user.ExpiredPasswordToken,
	}))
	s.log.Info().Str("user_id", user.ID).Msg("password expired")
	return nil
}

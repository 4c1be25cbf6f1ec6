package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ainterviewer/identity-service/internal/api/metrics"
	"github.com/ainterviewer/identity-service/internal/core/service"
	redislock "github.com/ainterviewer/identity-service/internal/infrastructure/db/redis"
)

// Sweeper runs one expiration pass.
type Sweeper interface {
	Run(ctx context.Context) (service.SweepReport, error)
}

// Locker guards a job across processes.
type Locker interface {
	Acquire(ctx context.Context) (func(context.Context) error, error)
}

// SweepJob runs the sweeper under a distributed lock and records metrics.
// A nil Locker runs unguarded, which is only safe with a single replica.
type SweepJob struct {
	sweeper Sweeper
	lock    Locker
	log     zerolog.Logger
}

func NewSweepJob(sweeper Sweeper, lock Locker, log zerolog.Logger) *SweepJob {
	return &SweepJob{sweeper: sweeper, lock: lock, log: log}
}

// RunOnce performs a single guarded pass. It returns redislock.ErrLockHeld
// when another process is sweeping.
func (j *SweepJob) RunOnce(ctx context.Context) (service.SweepReport, error) {
	if j.lock != nil {
		release, err := j.lock.Acquire(ctx)
		if err != nil {
			if errors.Is(err, redislock.ErrLockHeld) {
				metrics.SweepRunsTotal.WithLabelValues("skipped").Inc()
			} else {
				metrics.SweepRunsTotal.WithLabelValues("error").Inc()
			}
			return service.SweepReport{}, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				j.log.Warn().Err(err).Msg("sweeper lock release failed")
			}
		}()
	}

	start := time.Now()
	report, err := j.sweeper.Run(ctx)
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SweepRunsTotal.WithLabelValues("error").Inc()
		return report, err
	}
	metrics.SweepRunsTotal.WithLabelValues("ok").Inc()
	metrics.PasswordsExpiredTotal.Add(float64(report.Expired))
	return report, nil
}

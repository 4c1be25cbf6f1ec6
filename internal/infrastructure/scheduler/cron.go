package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	redislock "github.com/ainterviewer/identity-service/internal/infrastructure/db/redis"
)

// DefaultSchedule runs the sweeper every minute. Login relies on the sweeper
// to expire passwords, so a longer cadence lets expired passwords keep working.
const DefaultSchedule = "*/1 * * * *"

// Scheduler triggers the sweep job on a crontab schedule. Runs never overlap
// within a process.
type Scheduler struct {
	cron *cron.Cron
	job  *SweepJob
	log  zerolog.Logger
}

// New registers job under the standard five-field crontab spec.
func New(spec string, job *SweepJob, log zerolog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	cl := cronLogger{log: log}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	if _, err := c.AddFunc(spec, func() { runJob(context.Background(), job, log) }); err != nil {
		return nil, fmt.Errorf("invalid sweeper schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, job: job, log: log}, nil
}

// RunNow performs one sweep synchronously, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) {
	runJob(ctx, s.job, s.log)
}

func (s *Scheduler) Start() {
	s.log.Info().Msg("sweeper scheduler started")
	s.cron.Start()
}

// Stop prevents new runs and waits for a running one to finish, or for ctx
// to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runJob(ctx context.Context, job *SweepJob, log zerolog.Logger) {
	report, err := job.RunOnce(ctx)
	switch {
	case errors.Is(err, redislock.ErrLockHeld):
		log.Info().Msg("sweep skipped, another process holds the lock")
	case err != nil:
		log.Error().Err(err).Msg("sweep failed")
	default:
		log.Info().
			Int("scanned", report.Scanned).
			Int("expired", report.Expired).
			Int("failed", report.Failed).
			Msg("sweep completed")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

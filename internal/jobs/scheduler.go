package jobs

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers the scheduled jobs of a Set on their cron schedules.
// A run that is still in progress when its next tick fires is skipped.
type Scheduler struct {
	cron *cron.Cron
	lg   *zap.Logger
	ctx  context.Context
}

// NewScheduler registers every job of set that has a schedule.
func NewScheduler(set *Set, lg *zap.Logger) (*Scheduler, error) {
	cl := cronLogger{lg: lg.Named("cron")}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		lg:  lg,
		ctx: context.Background(),
	}

	for _, j := range set.All() {
		if j.Schedule == "" {
			lg.Info("Job has no schedule, skipping", zap.String("job", j.Name))
			continue
		}
		if _, err := s.cron.AddFunc(j.Schedule, func() { j.Run(s.ctx) }); err != nil {
			return nil, errors.Wrapf(err, "schedule %s", j.Name)
		}
		lg.Info("Job scheduled", zap.String("job", j.Name), zap.String("schedule", j.Schedule))
	}
	return s, nil
}

// Len reports how many jobs are scheduled.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.lg.Info("Scheduler started", zap.Int("jobs", s.Len()))

	<-ctx.Done()

	s.lg.Info("Stopping scheduler, waiting for running jobs")
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	lg *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.lg.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.lg.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

// Package scheduler runs recurring jobs, such as confirmation reminders and
// leaderboard publishing, on standard five-field cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of scheduled work. Returned errors are logged, not retried.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner with zap logging
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
	names  map[cron.EntryID]string
}

// New creates a scheduler evaluating specs in loc. Overlapping runs of the same job are skipped.
func New(ctx context.Context, loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	cronLogger := zapCronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger: logger,
		ctx:    ctx,
		names:  make(map[cron.EntryID]string),
	}
}

// Add registers job under name on a standard cron spec (e.g. "0 9 * * *")
func (s *Scheduler) Add(name, spec string, job Job) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, s.wrap(name, job))
	if err != nil {
		return 0, fmt.Errorf("failed to schedule %s with %q: %w", name, spec, err)
	}
	s.names[id] = name
	s.logger.Info("Scheduled job", zap.String("job", name), zap.String("spec", spec))
	return id, nil
}

// wrap logs each run with its duration and outcome
func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		start := time.Now()
		s.logger.Debug("Job started", zap.String("job", name))
		if err := job(s.ctx); err != nil {
			s.logger.Error("Job failed",
				zap.String("job", name),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err))
			return
		}
		s.logger.Info("Job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)))
	}
}

// Next returns the next run time of every registered job, keyed by name
func (s *Scheduler) Next() map[string]time.Time {
	next := make(map[string]time.Time, len(s.names))
	for _, entry := range s.cron.Entries() {
		if name, ok := s.names[entry.ID]; ok {
			next[name] = entry.Next
		}
	}
	return next
}

// Len returns the number of registered jobs
func (s *Scheduler) Len() int {
	return len(s.names)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// zapCronLogger adapts zap to cron.Logger
type zapCronLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

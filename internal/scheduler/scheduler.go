// Package scheduler runs a job on a cron schedule in a fixed time zone.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler fires one job on a standard five-field cron expression. A run
// that is still in progress when the next tick arrives causes that tick to
// be skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a scheduler evaluating expressions in loc.
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// Run schedules job on spec and blocks until ctx is done. The context passed
// to job is ctx itself, so cancellation reaches a run in progress; Run waits
// for that run to return before it does.
func (s *Scheduler) Run(ctx context.Context, spec string, job func(context.Context)) error {
	id, err := s.cron.AddFunc(spec, func() { job(ctx) })
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", spec, "next", s.cron.Entry(id).Next)

	<-ctx.Done()
	s.logger.Info("scheduler stopping")
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/opendata-summary/internal/observability"
	"github.com/robfig/cron/v3"
)

// Runner performs one summary run.
type Runner interface {
	Run(ctx context.Context, job Job) (Summary, error)
}

// Scheduler repeats a summary run on a cron schedule. Overlapping runs are
// skipped rather than queued.
type Scheduler struct {
	runner   Runner
	job      Job
	spec     string
	cron     *cron.Cron
	logger   *slog.Logger
	metrics  *observability.Metrics
	afterRun func(Summary, error)
	ready    atomic.Bool
	ctx      atomic.Pointer[context.Context]
}

// NewScheduler validates spec and registers the job. Standard five-field
// expressions and descriptors such as "@daily" or "@every 1h" are accepted.
// afterRun, if non-nil, is called after every run with its outcome.
func NewScheduler(spec string, runner Runner, job Job, logger *slog.Logger, metrics *observability.Metrics, afterRun func(Summary, error)) (*Scheduler, error) {
	s := &Scheduler{
		runner:   runner,
		job:      job,
		spec:     spec,
		logger:   logger,
		metrics:  metrics,
		afterRun: afterRun,
	}

	cl := cronLogger{logger: logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// CheckReadiness returns nil once a scheduled run has succeeded.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no successful summary run yet")
	}
	return nil
}

// Run starts the schedule and blocks until ctx is cancelled. It returns after
// any in-flight run has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx.Store(&ctx)
	s.logger.Info("scheduler started", "schedule", s.spec, "input", s.job.Input)
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)

	s.cron.Start()
	<-ctx.Done()

	s.logger.Info("scheduler stopping", "reason", ctx.Err())
	<-s.cron.Stop().Done()
	return nil
}

// Trigger performs one run immediately and records its outcome.
func (s *Scheduler) Trigger(ctx context.Context) error {
	summary, err := s.runner.Run(ctx, s.job)
	if err == nil {
		s.ready.Store(true)
	} else if ctx.Err() != nil {
		s.logger.Info("scheduled run interrupted", "error", err)
	}
	if s.afterRun != nil {
		s.afterRun(summary, err)
	}
	return err
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	if p := s.ctx.Load(); p != nil {
		ctx = *p
	}
	// Failures are logged and counted by the runner; the schedule goes on.
	_ = s.Trigger(ctx)
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}

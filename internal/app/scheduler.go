package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"news-extractor/internal/config"
	"news-extractor/internal/observability"
)

const (
	ScheduleOneshot  = "oneshot"
	ScheduleInterval = "interval"
	ScheduleCron     = "cron"
)

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Scheduler repeats a job according to the scheduler config.
type Scheduler struct {
	mode     string
	interval time.Duration
	schedule cron.Schedule
	cronExpr string
	logger   *observability.Logger
}

func NewScheduler(cfg *config.Config, logger *observability.Logger) (*Scheduler, error) {
	s := &Scheduler{
		mode:     cfg.Scheduler.Mode,
		interval: cfg.GetSchedulerInterval(),
		cronExpr: cfg.Scheduler.CronExpr,
		logger:   logger,
	}
	if s.mode == "" {
		s.mode = ScheduleOneshot
	}

	switch s.mode {
	case ScheduleOneshot:
	case ScheduleInterval:
		if s.interval <= 0 {
			return nil, fmt.Errorf("scheduler.interval_s must be positive")
		}
	case ScheduleCron:
		schedule, err := cron.ParseStandard(s.cronExpr)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler.cron_expr %q: %w", s.cronExpr, err)
		}
		s.schedule = schedule
	default:
		return nil, fmt.Errorf("unknown scheduler mode %q", s.mode)
	}
	return s, nil
}

// Run executes job once in oneshot mode and returns its error. In the
// repeating modes it runs until ctx is done; job errors are logged and the
// schedule goes on, except configuration errors which stop it.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	switch s.mode {
	case ScheduleInterval:
		return s.runInterval(ctx, job)
	case ScheduleCron:
		return s.runCron(ctx, job)
	default:
		return job(ctx)
	}
}

func (s *Scheduler) runInterval(ctx context.Context, job Job) error {
	s.logger.Info("Scheduler started", "mode", s.mode, "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := job(ctx); err != nil {
			if IsConfigError(err) {
				return err
			}
			s.logger.Error("Scheduled run failed", "error", err.Error())
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			s.logger.Info("Scheduler stopped")
			return nil
		}
	}
}

func (s *Scheduler) runCron(ctx context.Context, job Job) error {
	s.logger.Info("Scheduler started", "mode", s.mode, "cron_expr", s.cronExpr)

	fatal := make(chan error, 1)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})))
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if err := job(ctx); err != nil {
			if IsConfigError(err) {
				select {
				case fatal <- err:
				default:
				}
				return
			}
			s.logger.Error("Scheduled run failed", "error", err.Error())
		}
	}))
	c.Start()

	var err error
	select {
	case <-ctx.Done():
	case err = <-fatal:
	}

	<-c.Stop().Done()
	s.logger.Info("Scheduler stopped")
	return err
}

// cronLogger routes cron's own messages to our logger.
type cronLogger struct {
	l *observability.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err.Error())...)
}

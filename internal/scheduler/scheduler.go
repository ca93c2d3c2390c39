package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-etl/internal/notify"
	"github.com/i474232898/weather-etl/internal/weather"
)

// Runner performs one live ETL cycle.
type Runner interface {
	RunOnce(ctx context.Context) (weather.RunResult, error)
}

// Scheduler periodically runs the live ETL cycle.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	notifier  notify.Notifier
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. The first run happens one interval after Start.
func New(runner Runner, notifier notify.Notifier, interval time.Duration, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	// a slow run is never overlapped by the next tick
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		notifier:  notifier,
		interval:  interval,
		timeout:   interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.job)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduled ETL", "interval", s.interval.String())
	return nil
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	s.logger.Info("scheduler stopped")
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// job runs one cycle. Failures are reported and never escape, so the
// schedule keeps ticking.
func (s *Scheduler) job() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			s.logger.Error("scheduled ETL panicked", "error", err)
			s.notifier.NotifyFailure(ctx, notify.StageETLOnce, err)
		}
	}()

	s.logger.Info("running scheduled ETL")
	res, err := s.runner.RunOnce(ctx)
	if err != nil {
		s.logger.Error("scheduled ETL failed", "run_id", res.RunID, "inserted", res.Inserted, "error", err)
		s.notifier.NotifyFailure(ctx, notify.StageETLOnce, err)
		return
	}
	s.logger.Info("scheduled ETL completed", "run_id", res.RunID, "inserted", res.Inserted)
}

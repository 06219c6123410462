package usecase

import (
	"context"
	"log/slog"
	"time"

	"ResearchRadar/internal/ports"
)

// Runner is the part of Pipeline the scheduler drives.
type Runner interface {
	Run(ctx context.Context, now time.Time) (Result, error)
}

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver ports.Scheduler
	runner Runner
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, runner: runner, logger: logger.With("component", "schedule")}
}

// Start registers the pipeline with the provided scheduler. A failed run is
// logged and the next tick runs again.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		res, err := s.runner.Run(ctx, trigger)
		if err != nil {
			s.logger.Error("scheduled run failed", "trigger", trigger.Format(time.RFC3339), "error", err)
			return
		}
		s.logger.Info("scheduled run done", "run_id", res.Report.RunID, "dir", res.Paths.Dir)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// AngelaMos | 2026
// scheduler.go

package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a periodic maintenance task reporting how many rows it touched.
type Job func(ctx context.Context) (int64, error)

// Scheduler runs the monthly usage reset and any other maintenance jobs
// registered before Start, all in UTC.
type Scheduler struct {
	cron    *cron.Cron
	repo    Repository
	logger  *slog.Logger
	timeout time.Duration
}

func NewScheduler(repo Repository, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		repo:    repo,
		logger:  logger,
		timeout: time.Minute,
	}
}

// Every registers job under name. An empty schedule disables it.
func (s *Scheduler) Every(name, schedule string, job Job) error {
	if schedule == "" {
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := time.Now()
		rows, err := job(ctx)
		if err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Info("scheduled job finished",
			"job", name,
			"rows", rows,
			"duration", time.Since(start),
		)
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, schedule, err)
	}
	return nil
}

// Start adds the usage reset on resetSchedule and starts the cron loop.
func (s *Scheduler) Start(resetSchedule string) error {
	if err := s.Every("usage_reset", resetSchedule, s.RunOnce); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduled job still running at shutdown")
	}
}

// RunOnce zeroes every tenant's monthly counter.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	rows, err := s.repo.ResetAll(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.Info("monthly usage reset", "tenants", rows)
	return rows, nil
}

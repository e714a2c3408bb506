// Package scheduler periodically refreshes forecasts for every stored location.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

const jobTimeout = 5 * time.Minute

// Refresher is satisfied by report.Service.
type Refresher interface {
	RefreshAll(ctx context.Context, days int) error
}

// Scheduler runs Refresher.RefreshAll on a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	days      int
	log       *slog.Logger
}

// New creates a Scheduler. Nothing runs until Start.
func New(refresher Refresher, interval time.Duration, days int, log *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		days:      days,
		log:       log,
	}
}

// Start schedules the refresh job, runs it once immediately and returns.
// A non-positive interval disables the scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("scheduler disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Info("scheduler started", "interval", s.interval.String(), "days", s.days)
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := s.refresher.RefreshAll(ctx, s.days); err != nil {
		s.log.Error("scheduled refresh failed", "err", err)
		return
	}
	s.log.Info("scheduled refresh completed", "duration", time.Since(start).String())
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

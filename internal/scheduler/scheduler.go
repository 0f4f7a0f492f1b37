package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"impact-registration/internal/logger"
)

// Scheduler runs named jobs on cron schedules
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a scheduler that evaluates specs in UTC with seconds precision
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithSeconds(),
		),
	}
}

// Add registers job under spec. A panicking job is logged and does not stop later runs.
func (s *Scheduler) Add(name, spec string, job func()) error {
	_, err := s.cron.AddFunc(spec, func() { runWithRecovery(name, job) })
	if err != nil {
		logger.Error("Failed to register job", "job", name, "spec", spec, "error", err)
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	logger.Debug("Job registered", "job", name, "spec", spec)
	return nil
}

// RunNow runs job once on the caller's goroutine with the same panic recovery as scheduled runs
func (s *Scheduler) RunNow(name string, job func()) {
	runWithRecovery(name, job)
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting scheduler...", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	logger.Info("Stopping scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Scheduler stopped")
}

// IsRunning returns true if any job is registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

func runWithRecovery(name string, job func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", name, "panic", r)
		}
	}()

	logger.Debug("Starting job", "job", name)
	job()
	logger.Debug("Job completed", "job", name)
}

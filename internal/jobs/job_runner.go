package jobs

import (
	"context"
	"sync"

	"impact-registration/internal/config"
	"impact-registration/internal/logger"
	"impact-registration/internal/pass"
	"impact-registration/internal/service"
	"impact-registration/internal/session"
)

// JobRunner coordinates the client's scheduled jobs
type JobRunner struct {
	ctx      context.Context
	backend  service.Backend
	store    session.Store
	notifier service.Notifier
	passes   *pass.Generator
	config   *config.Config

	mu       sync.Mutex
	verified map[string]bool // last seen verified flag per registration id; nil until the first check
	lastErr  string
}

// NewJobRunner creates a new job runner with all dependencies. Scheduled
// runs derive their context from ctx, so cancelling it aborts an in-flight check.
func NewJobRunner(ctx context.Context, b service.Backend, store session.Store, n service.Notifier, passes *pass.Generator, cfg *config.Config) *JobRunner {
	if n == nil {
		n = service.LogNotifier{}
	}
	return &JobRunner{
		ctx:      ctx,
		backend:  b,
		store:    store,
		notifier: n,
		passes:   passes,
		config:   cfg,
	}
}

// Config returns the configuration the jobs were built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// WatchVerifications is the scheduled form of CheckVerifications
func (jr *JobRunner) WatchVerifications() {
	ctx := jr.ctx
	if timeout := jr.config.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if _, err := jr.CheckVerifications(ctx); err != nil {
		logger.Warn("Verification check failed", "error", err)
	}
}

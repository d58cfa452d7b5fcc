package cache

import (
	"context"
	"sync"

	"github.com/compozy/storagectl/pkg/config"
	"github.com/compozy/storagectl/pkg/logger"
	"github.com/robfig/cron/v3"
)

// AutoCleanSpec is the period of the recurring auto-clean.
const AutoCleanSpec = "@every 24h"

// PolicySource supplies the auto-clean policy.
type PolicySource interface {
	Get() config.StorageConfig
}

// Job runs one age-based clear.
type Job func(ctx context.Context, olderThanDays int)

// Scheduler keeps at most one recurring auto-clean armed.
type Scheduler struct {
	cron    *cron.Cron
	source  PolicySource
	job     Job
	mu      sync.Mutex
	entry   cron.EntryID
	armed   bool
	started bool
}

func NewScheduler(source PolicySource, job Job) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		source: source,
		job:    job,
	}
}

// Schedule applies the current policy. It always cancels the previous
// schedule first. When auto-clean is enabled it runs one clear immediately,
// on the calling goroutine, and then arms the recurring job.
func (s *Scheduler) Schedule(ctx context.Context) error {
	log := logger.FromContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed {
		s.cron.Remove(s.entry)
		s.armed = false
	}
	cfg := s.source.Get()
	if !cfg.AutoCleanEnabled {
		log.Debug("auto-clean disabled")
		return nil
	}
	days := cfg.AutoCleanDays
	s.job(ctx, days)

	jobCtx := context.WithoutCancel(ctx)
	id, err := s.cron.AddFunc(AutoCleanSpec, func() {
		s.job(jobCtx, days)
	})
	if err != nil {
		return err
	}
	s.entry = id
	s.armed = true
	if !s.started {
		s.cron.Start()
		s.started = true
	}
	log.Info("auto-clean scheduled", "older_than_days", days, "schedule", AutoCleanSpec)
	return nil
}

// Armed reports whether a recurring job is scheduled.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Stop cancels the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.armed {
		s.cron.Remove(s.entry)
		s.armed = false
	}
	started := s.started
	s.started = false
	s.mu.Unlock()
	if started {
		<-s.cron.Stop().Done()
	}
}

// Package scheduler runs recurring background work on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"nppflow/logging"
)

// Scheduler manages recurring jobs using cron scheduling.
type Scheduler struct {
	cron   *cron.Cron
	logger *logging.Logger
	mu     sync.Mutex
	jobs   map[string]cron.EntryID
}

// New creates a scheduler. Expressions carry a leading seconds field.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		logger: logging.Default().WithComponent("scheduler"),
		jobs:   make(map[string]cron.EntryID),
	}
}

// Start starts the scheduler. Jobs added before this call will begin running.
func (s *Scheduler) Start() {
	s.logger.Info("Starting job scheduler", "jobs", len(s.jobs))
	s.cron.Start()
}

// Stop stops scheduling; the returned context is done once running jobs return.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Stopping job scheduler")
	return s.cron.Stop()
}

// AddJob registers job under name.
//
// Examples:
//   - "0 0 2 * * *" - every day at 02:00
//   - "@every 30m"  - every thirty minutes
func (s *Scheduler) AddJob(name, cronExpr string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		s.logger.Info("Running scheduled job", "job_name", name)
		job()
	})
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info("Added scheduled job", "job_name", name, "cron_expr", cronExpr)
	return nil
}

// RemoveJob removes a job by name.
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	s.cron.Remove(entryID)
	delete(s.jobs, name)
	s.logger.Info("Removed scheduled job", "job_name", name)
	return nil
}

// JobNames returns the registered job names in order.
func (s *Scheduler) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

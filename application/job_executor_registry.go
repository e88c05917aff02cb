package application

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"nppflow/domain/jobs"
)

// ErrUnsupportedJobType is returned when no executor runs a job type.
var ErrUnsupportedJobType = errors.New("unsupported job type")

// JobExecutorRegistry maps job types to the executor that runs them. Rollover
// and RLS sync are registered at startup once their services exist.
type JobExecutorRegistry struct {
	executors map[jobs.JobType]JobExecutor
	mutex     sync.RWMutex
}

// NewJobExecutorRegistry creates an empty registry.
func NewJobExecutorRegistry() *JobExecutorRegistry {
	return &JobExecutorRegistry{
		executors: make(map[jobs.JobType]JobExecutor),
	}
}

// RegisterExecutor sets the executor for a job type, replacing any earlier one.
func (r *JobExecutorRegistry) RegisterExecutor(jobType jobs.JobType, executor JobExecutor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.executors[jobType] = executor
}

// GetExecutor returns the executor for jobType.
func (r *JobExecutorRegistry) GetExecutor(jobType jobs.JobType) (JobExecutor, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	executor, ok := r.executors[jobType]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnsupportedJobType, jobType, r.typesLocked())
	}
	return executor, nil
}

// SupportedJobTypes lists the registered job types in name order.
func (r *JobExecutorRegistry) SupportedJobTypes() []jobs.JobType {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.typesLocked()
}

func (r *JobExecutorRegistry) typesLocked() []jobs.JobType {
	types := make([]jobs.JobType, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

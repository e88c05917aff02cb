package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"nppflow/domain/contracts"
	"nppflow/domain/events"
	"nppflow/domain/jobs"
	"nppflow/logging"
)

// ErrJobAlreadyRunning is returned when an equivalent job is still active.
var ErrJobAlreadyRunning = errors.New("job already running")

// JobServiceImpl implements job orchestration.
type JobServiceImpl struct {
	jobRepo  contracts.JobRepository
	registry *JobExecutorRegistry
	notifier UpdateNotifier
	eventBus events.JobEventPublisher
	logger   *logging.Logger

	// Context cancellation for running jobs
	runningJobs map[string]context.CancelFunc
	jobsMutex   sync.RWMutex
	wg          sync.WaitGroup
}

// NewJobService creates a new job service
func NewJobService(
	jobRepo contracts.JobRepository,
	registry *JobExecutorRegistry,
	notifier UpdateNotifier,
	eventBus events.JobEventPublisher,
) *JobServiceImpl {
	return &JobServiceImpl{
		jobRepo:     jobRepo,
		registry:    registry,
		notifier:    notifier,
		eventBus:    eventBus,
		logger:      logging.Default().WithComponent("job_service"),
		runningJobs: make(map[string]context.CancelFunc),
	}
}

// StartJob creates and starts a job. Only one active job per type and entity is allowed.
func (s *JobServiceImpl) StartJob(jobType jobs.JobType, jobCtx jobs.JobContextData) (*jobs.Job, error) {
	// Get executor for this job type
	executor, err := s.registry.GetExecutor(jobType)
	if err != nil {
		return nil, fmt.Errorf("cannot start job: %w", err)
	}

	job, err := s.CreateJob(jobType, jobCtx)
	if err != nil {
		return nil, err
	}

	// Start execution asynchronously
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.executeJobAsync(job, executor)
	}()

	s.logger.Info("Job started successfully", "job_id", job.ID, "type", jobType)
	return job, nil
}

// CreateJob creates a new pending job using the domain factory
func (s *JobServiceImpl) CreateJob(jobType jobs.JobType, jobCtx jobs.JobContextData) (*jobs.Job, error) {
	jobFactory := &jobs.JobFactory{}
	var job *jobs.Job
	switch c := jobCtx.(type) {
	case jobs.RolloverJobContext:
		if jobType != jobs.JobTypeForecastRollover {
			return nil, fmt.Errorf("rollover context for %s job", jobType)
		}
		job = jobFactory.CreateRolloverJob(c)
	case jobs.RLSSyncJobContext:
		if jobType != jobs.JobTypeRLSSync {
			return nil, fmt.Errorf("rls sync context for %s job", jobType)
		}
		job = jobFactory.CreateRLSSyncJob(c)
	default:
		return nil, fmt.Errorf("unsupported job context %T", jobCtx)
	}

	if active, ok := s.ActiveJobFor(jobType, job.EntityID); ok {
		return nil, fmt.Errorf("%w: %s", ErrJobAlreadyRunning, active.ID)
	}

	// Persist using repository
	ctx := context.Background()
	if err := s.jobRepo.CreateJob(ctx, job); err != nil {
		s.logger.Error("Failed to create job", "job_id", job.ID, "error", err)
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Job created", "job_id", job.ID, "type", jobType, "entity_id", job.EntityID)
	return job, nil
}

// executeJobAsync executes the job asynchronously
func (s *JobServiceImpl) executeJobAsync(job *jobs.Job, executor JobExecutor) {
	// Create cancellable context for this job
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.jobsMutex.Lock()
	s.runningJobs[job.ID] = cancel
	s.jobsMutex.Unlock()

	defer func() {
		s.jobsMutex.Lock()
		delete(s.runningJobs, job.ID)
		s.jobsMutex.Unlock()
	}()

	jobLifecycle := &jobs.JobLifecycle{}
	if err := jobLifecycle.StartJob(job); err != nil {
		s.logger.Error("Failed to start job", "job_id", job.ID, "error", err)
		s.failJob(job, err.Error())
		s.persist(job)
		return
	}

	if err := s.jobRepo.UpdateJob(ctx, job); err != nil {
		s.logger.Error("Failed to update job to running", "job_id", job.ID, "error", err)
	}
	s.notifyJobUpdate(job.ID, job)

	progressCallback := s.createProgressCallback(job)
	err := executor.Execute(ctx, job, progressCallback)

	switch {
	case err != nil && errors.Is(ctx.Err(), context.Canceled):
		s.logger.Info("Job was cancelled", "job_id", job.ID)
		if job.IsActive() {
			// Cancelled by Shutdown rather than CancelJob
			_ = jobLifecycle.CancelJob(job)
		}
	case err != nil:
		s.logger.Error("Job execution failed", "job_id", job.ID, "error", err)
		s.failJob(job, err.Error())
	case job.IsActive():
		s.completeJob(job)
	}

	s.persist(job)
	s.notifyJobUpdate(job.ID, job)
}

func (s *JobServiceImpl) persist(job *jobs.Job) {
	if err := s.jobRepo.UpdateJob(context.Background(), job); err != nil {
		s.logger.Error("Failed to update job final status", "job_id", job.ID, "error", err)
	}
}

// createProgressCallback creates a progress callback for job execution
func (s *JobServiceImpl) createProgressCallback(job *jobs.Job) ProgressCallback {
	return func(stage, description string, percentage, itemsDone, itemsTotal int) {
		job.UpdateProgress(stage, description, percentage, itemsDone, itemsTotal)

		if err := s.jobRepo.UpdateJob(context.Background(), job); err != nil {
			s.logger.Error("Failed to update job progress", "job_id", job.ID, "error", err)
		}
		s.notifyJobUpdate(job.ID, job)
	}
}

// completeJob completes a job successfully
func (s *JobServiceImpl) completeJob(job *jobs.Job) {
	jobLifecycle := &jobs.JobLifecycle{}
	if err := jobLifecycle.CompleteJob(job); err != nil {
		s.logger.Warn("Job not completed", "job_id", job.ID, "error", err)
		return
	}
	s.logger.Info("Job completed", "job_id", job.ID, "failures", len(job.State.Failures))

	if s.eventBus != nil {
		s.eventBus.PublishJobCompleted(events.JobCompletedEvent{Job: job, Timestamp: time.Now()})
	}
}

// failJob fails a job with an error message
func (s *JobServiceImpl) failJob(job *jobs.Job, errorMsg string) {
	jobLifecycle := &jobs.JobLifecycle{}
	if err := jobLifecycle.FailJob(job, errorMsg); err != nil {
		s.logger.Warn("Job not failed", "job_id", job.ID, "error", err)
		return
	}
	s.logger.Error("Job failed", "job_id", job.ID, "error", errorMsg)

	if s.eventBus != nil {
		s.eventBus.PublishJobFailed(events.JobFailedEvent{Job: job, Error: errorMsg, Timestamp: time.Now()})
	}
}

// GetJob retrieves job by ID
func (s *JobServiceImpl) GetJob(jobID string) (*jobs.Job, bool) {
	job, err := s.jobRepo.GetJob(context.Background(), jobID)
	if err != nil {
		s.logger.Error("Failed to get job from repository", "job_id", jobID, "error", err)
		return nil, false
	}
	if job == nil {
		return nil, false
	}
	return job, true
}

// CancelJob cancels a running job
func (s *JobServiceImpl) CancelJob(jobID string) (*jobs.Job, error) {
	ctx := context.Background()
	job, err := s.jobRepo.GetJob(ctx, jobID)
	if err != nil || job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, contracts.ErrNotFound)
	}

	jobLifecycle := &jobs.JobLifecycle{}
	if err := jobLifecycle.CancelJob(job); err != nil {
		return nil, err
	}

	s.jobsMutex.Lock()
	if cancelFunc, exists := s.runningJobs[jobID]; exists {
		cancelFunc()
		s.logger.Info("Cancelled running job context", "job_id", jobID)
	}
	s.jobsMutex.Unlock()

	if err := s.jobRepo.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	if s.eventBus != nil {
		s.eventBus.PublishJobCancelled(events.JobCancelledEvent{Job: job, Timestamp: time.Now()})
	}
	s.notifyJobUpdate(job.ID, job)
	return job, nil
}

// ListAllJobs returns all jobs from repository
func (s *JobServiceImpl) ListAllJobs() []*jobs.Job {
	jobList, err := s.jobRepo.ListJobs(context.Background())
	if err != nil {
		s.logger.Error("Failed to list all jobs", "error", err)
		return []*jobs.Job{}
	}
	return jobList
}

// ListJobsByType returns jobs filtered by type
func (s *JobServiceImpl) ListJobsByType(jobType jobs.JobType) []*jobs.Job {
	jobList, err := s.jobRepo.ListJobsByType(context.Background(), jobType)
	if err != nil {
		s.logger.Error("Failed to list jobs by type", "type", jobType, "error", err)
		return []*jobs.Job{}
	}
	return jobList
}

// ListActiveJobs returns pending and running jobs
func (s *JobServiceImpl) ListActiveJobs() []*jobs.Job {
	jobList, err := s.jobRepo.ListActiveJobs(context.Background())
	if err != nil {
		s.logger.Error("Failed to list active jobs", "error", err)
		return []*jobs.Job{}
	}
	return jobList
}

// ActiveJobFor finds an active job of the given type for an entity (0 for site-wide jobs).
func (s *JobServiceImpl) ActiveJobFor(jobType jobs.JobType, entityID int) (*jobs.Job, bool) {
	for _, job := range s.ListActiveJobs() {
		if job.Type == jobType && job.EntityID == entityID {
			return job, true
		}
	}
	return nil, false
}

// UpdateJobProgress updates job progress and notifies clients
func (s *JobServiceImpl) UpdateJobProgress(jobID string, stage, description string, percentage, itemsDone, itemsTotal int) error {
	job, exists := s.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job %s: %w", jobID, contracts.ErrNotFound)
	}

	job.UpdateProgress(stage, description, percentage, itemsDone, itemsTotal)

	if err := s.jobRepo.UpdateJob(context.Background(), job); err != nil {
		s.logger.Error("Failed to update job progress", "job_id", jobID, "error", err)
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	s.notifyJobUpdate(job.ID, job)
	return nil
}

// SetUpdateNotifier sets the update notifier for job changes
func (s *JobServiceImpl) SetUpdateNotifier(notifier UpdateNotifier) {
	s.notifier = notifier
}

// Wait blocks until every started job has returned. Used on shutdown and in tests.
func (s *JobServiceImpl) Wait() {
	s.wg.Wait()
}

// Shutdown cancels running jobs and waits for them to stop.
func (s *JobServiceImpl) Shutdown() {
	s.jobsMutex.Lock()
	for id, cancel := range s.runningJobs {
		s.logger.Info("Cancelling job on shutdown", "job_id", id)
		cancel()
	}
	s.jobsMutex.Unlock()
	s.wg.Wait()
}

// notifyJobUpdate notifies clients of job updates
func (s *JobServiceImpl) notifyJobUpdate(jobID string, job *jobs.Job) {
	if s.notifier != nil {
		s.notifier.NotifyJobUpdate(jobID, job)
	}
}

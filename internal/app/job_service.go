package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/archivebackup/internal/constants"
	"github.com/cesargomez89/archivebackup/internal/domain"
	"github.com/cesargomez89/archivebackup/internal/logger"
	"github.com/cesargomez89/archivebackup/internal/store"
)

// JobService keeps the audit trail of backup attempts. The engine only
// writes to it.
type JobService struct {
	Repo   *store.DB
	Logger *logger.Logger
}

func NewJobService(repo *store.DB, log *logger.Logger) *JobService {
	if log == nil {
		log = logger.Default()
	}
	return &JobService{Repo: repo, Logger: log.WithComponent("jobs")}
}

// RecordJobStart stores a pending job for identifier.
func (s *JobService) RecordJobStart(ctx context.Context, identifier string, jobType domain.JobType) (*domain.Job, error) {
	job := &domain.Job{
		ID:         uuid.New().String(),
		Identifier: identifier,
		Type:       jobType,
		Status:     domain.JobStatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.Repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record job: %w", err)
	}
	s.Logger.Info("Job recorded", "job_id", job.ID, "identifier", identifier, "type", jobType)
	return job, nil
}

func (s *JobService) MarkRunning(ctx context.Context, id string) error {
	return s.Repo.MarkJobRunning(ctx, id, time.Now().UTC())
}

func (s *JobService) UpdateProgress(ctx context.Context, id string, progress float64) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return s.Repo.UpdateJobProgress(ctx, id, progress)
}

// RecordJobOutcome stores the terminal state. jobErr becomes the error message.
func (s *JobService) RecordJobOutcome(ctx context.Context, id string, status domain.JobStatus, jobErr error) error {
	if !status.IsTerminal() {
		return fmt.Errorf("job %s: %s is not a terminal status", id, status)
	}
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	if err := s.Repo.FinishJob(ctx, id, status, msg, time.Now().UTC()); err != nil {
		return err
	}
	s.Logger.Info("Job finished", "job_id", id, "status", status)
	return nil
}

func (s *JobService) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return s.Repo.GetJob(ctx, id)
}

func (s *JobService) ListJobs(ctx context.Context, page, perPage int) ([]*domain.Job, int, error) {
	return s.Repo.ListJobs(ctx, page, perPage)
}

func (s *JobService) RecentJobs(ctx context.Context, identifier string) ([]*domain.Job, error) {
	return s.Repo.ListJobsForIdentifier(ctx, identifier, constants.RecentJobsLimit)
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cesargomez89/archivebackup/internal/domain"
)

const jobColumns = `id, identifier, job_type, status, progress, started_at, completed_at, error_message, created_at`

func (db *DB) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `INSERT INTO backup_jobs (id, identifier, job_type, status, progress, started_at, completed_at, error_message, created_at)
		VALUES (:id, :identifier, :job_type, :status, :progress, :started_at, :completed_at, :error_message, :created_at)`

	_, err := db.NamedExecContext(ctx, query, job)
	return classify(err)
}

func (db *DB) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	job := &domain.Job{}
	err := db.GetContext(ctx, job, `SELECT `+jobColumns+` FROM backup_jobs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// MarkJobRunning moves a pending job to running and stamps started_at.
func (db *DB) MarkJobRunning(ctx context.Context, id string, at time.Time) error {
	return db.execJob(ctx, `UPDATE backup_jobs SET status = ?, started_at = ? WHERE id = ?`,
		id, domain.JobStatusRunning, at, id)
}

func (db *DB) UpdateJobProgress(ctx context.Context, id string, progress float64) error {
	return db.execJob(ctx, `UPDATE backup_jobs SET progress = ? WHERE id = ?`, id, progress, id)
}

// FinishJob records the terminal status. errMsg is stored as NULL when empty.
func (db *DB) FinishJob(ctx context.Context, id string, status domain.JobStatus, errMsg string, at time.Time) error {
	var errVal *string
	if errMsg != "" {
		errVal = &errMsg
	}
	query := `UPDATE backup_jobs SET status = ?, error_message = ?, completed_at = ?,
		progress = CASE WHEN ? = 'completed' THEN 1 ELSE progress END WHERE id = ?`
	return db.execJob(ctx, query, id, status, errVal, at, status, id)
}

func (db *DB) execJob(ctx context.Context, query, id string, args ...interface{}) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

// ListJobs returns one page of jobs, most recently started first, and the total count.
func (db *DB) ListJobs(ctx context.Context, page, perPage int) ([]*domain.Job, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM backup_jobs`); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	var jobs []*domain.Job
	err := db.SelectContext(ctx, &jobs, `SELECT `+jobColumns+` FROM backup_jobs
		ORDER BY COALESCE(started_at, created_at) DESC, created_at DESC LIMIT ? OFFSET ?`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, total, nil
}

func (db *DB) ListJobsForIdentifier(ctx context.Context, identifier string, limit int) ([]*domain.Job, error) {
	var jobs []*domain.Job
	err := db.SelectContext(ctx, &jobs, `SELECT `+jobColumns+` FROM backup_jobs WHERE identifier = ?
		ORDER BY COALESCE(started_at, created_at) DESC, created_at DESC LIMIT ?`, identifier, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for %s: %w", identifier, err)
	}
	return jobs, nil
}

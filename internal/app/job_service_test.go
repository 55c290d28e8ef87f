package app

import (
	"context"
	"errors"
	"testing"

	"github.com/cesargomez89/archivebackup/internal/domain"
)

func TestJobService_Lifecycle(t *testing.T) {
	env := newTestEnv(t, BackupConfig{})
	svc := env.jobs
	ctx := context.Background()

	job, err := svc.RecordJobStart(ctx, "gd77", domain.JobTypeFull)
	if err != nil {
		t.Fatalf("RecordJobStart failed: %v", err)
	}
	if job.Status != domain.JobStatusPending {
		t.Errorf("Expected status pending, got %s", job.Status)
	}
	if job.ID == "" {
		t.Fatal("Expected job ID")
	}

	if err := svc.MarkRunning(ctx, job.ID); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	if err := svc.UpdateProgress(ctx, job.ID, 1.7); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	got, _ := svc.GetJob(ctx, job.ID)
	if got.Status != domain.JobStatusRunning || got.StartedAt == nil {
		t.Errorf("Expected running job with start time, got %+v", got)
	}
	if got.Progress != 1 {
		t.Errorf("Expected progress clamped to 1, got %f", got.Progress)
	}

	if err := svc.RecordJobOutcome(ctx, job.ID, domain.JobStatusFailed, errors.New("remote catalog unavailable")); err != nil {
		t.Fatalf("RecordJobOutcome failed: %v", err)
	}
	got, _ = svc.GetJob(ctx, job.ID)
	if got.Status != domain.JobStatusFailed || got.Error == nil || *got.Error != "remote catalog unavailable" {
		t.Errorf("Unexpected finished job: %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("Expected completion time")
	}
}

func TestJobService_RejectsNonTerminalOutcome(t *testing.T) {
	env := newTestEnv(t, BackupConfig{})
	ctx := context.Background()

	job, _ := env.jobs.RecordJobStart(ctx, "gd77", domain.JobTypeMetadata)
	if err := env.jobs.RecordJobOutcome(ctx, job.ID, domain.JobStatusRunning, nil); err == nil {
		t.Error("Expected error for non-terminal status")
	}
	if err := env.jobs.RecordJobOutcome(ctx, "missing", domain.JobStatusCompleted, nil); err == nil {
		t.Error("Expected error for unknown job")
	}
}

func TestJobService_ListJobs(t *testing.T) {
	env := newTestEnv(t, BackupConfig{})
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, err := env.jobs.RecordJobStart(ctx, "gd77", domain.JobTypeFiles); err != nil {
			t.Fatalf("RecordJobStart failed: %v", err)
		}
	}
	_, _ = env.jobs.RecordJobStart(ctx, "other", domain.JobTypeFiles)

	jobs, total, err := env.jobs.ListJobs(ctx, 2, 5)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if total != 8 || len(jobs) != 3 {
		t.Errorf("Expected 3 of 8 jobs on page 2, got %d of %d", len(jobs), total)
	}

	recent, _ := env.jobs.RecentJobs(ctx, "gd77")
	if len(recent) != 5 {
		t.Errorf("Expected 5 recent jobs, got %d", len(recent))
	}
}

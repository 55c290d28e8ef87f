package app

import (
	"context"

	"github.com/cesargomez89/archivebackup/internal/domain"
	"github.com/cesargomez89/archivebackup/internal/logger"
	"github.com/cesargomez89/archivebackup/internal/store"
)

// BackupStatus describes what is stored locally for one identifier.
// Item is nil when nothing has been backed up.
type BackupStatus struct {
	Item             *domain.Item
	Identifier       string
	RecentJobs       []*domain.Job
	TotalFiles       int
	DownloadedFiles  int
	MetadataBackedUp bool
	FilesBackedUp    bool
}

type LibraryService struct {
	Repo   *store.DB
	Jobs   *JobService
	Logger *logger.Logger
}

func NewLibraryService(repo *store.DB, jobs *JobService, log *logger.Logger) *LibraryService {
	if log == nil {
		log = logger.Default()
	}
	return &LibraryService{Repo: repo, Jobs: jobs, Logger: log.WithComponent("library")}
}

func (s *LibraryService) Status(ctx context.Context, identifier string) (*BackupStatus, error) {
	status := &BackupStatus{Identifier: identifier}

	jobs, err := s.Jobs.RecentJobs(ctx, identifier)
	if err != nil {
		return nil, err
	}
	status.RecentJobs = jobs

	item, err := s.Repo.FindItem(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return status, nil
	}

	total, downloaded, err := s.Repo.FileCounts(ctx, identifier)
	if err != nil {
		return nil, err
	}
	status.Item = item
	status.MetadataBackedUp = true
	status.FilesBackedUp = item.IsBackedUp
	status.TotalFiles = total
	status.DownloadedFiles = downloaded
	return status, nil
}

// ListBackups pages through stored items, newest first.
func (s *LibraryService) ListBackups(ctx context.Context, page, perPage int) (*LocalResult, error) {
	page, perPage = normalizePage(page, perPage)
	items, total, err := s.Repo.ListItems(ctx, page, perPage, store.ItemFilter{})
	if err != nil {
		return nil, err
	}
	return &LocalResult{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

type JobPage struct {
	Jobs    []*domain.Job
	Page    int
	PerPage int
	Total   int
}

func (s *LibraryService) ListJobs(ctx context.Context, page, perPage int) (*JobPage, error) {
	page, perPage = normalizePage(page, perPage)
	jobs, total, err := s.Jobs.ListJobs(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	return &JobPage{Jobs: jobs, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *LibraryService) Ping(ctx context.Context) error {
	return s.Repo.PingContext(ctx)
}

package dto

import (
	"fmt"
	"time"

	"github.com/cesargomez89/archivebackup/internal/app"
	"github.com/cesargomez89/archivebackup/internal/domain"
	"github.com/cesargomez89/archivebackup/internal/store"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type MetadataResponse struct {
	Message      string `json:"message"`
	Identifier   string `json:"identifier"`
	Action       string `json:"action"`
	JobID        string `json:"job_id"`
	ReviewsCount int    `json:"reviews_count"`
	HasStats     bool   `json:"has_stats"`
}

func NewMetadataResponse(r *app.MetadataResult) MetadataResponse {
	return MetadataResponse{
		Message:      fmt.Sprintf("Metadata %s successfully", r.Action),
		Identifier:   r.Identifier,
		Action:       r.Action,
		JobID:        r.JobID,
		ReviewsCount: r.ReviewsCount,
		HasStats:     r.HasStats,
	}
}

type FilesResponse struct {
	Message         string               `json:"message"`
	Identifier      string               `json:"identifier"`
	JobID           string               `json:"job_id"`
	DownloadedFiles []string             `json:"downloaded_files"`
	SkippedFiles    []string             `json:"skipped_files"`
	FailedFiles     []string             `json:"failed_files"`
	Failures        []domain.FileFailure `json:"failures"`
	TotalDownloaded int                  `json:"total_downloaded"`
	TotalFailed     int                  `json:"total_failed"`
}

func NewFilesResponse(r *app.FilesResult) FilesResponse {
	return FilesResponse{
		Message:         "File backup completed",
		Identifier:      r.Identifier,
		JobID:           r.JobID,
		DownloadedFiles: nonNil(r.Downloaded),
		SkippedFiles:    nonNil(r.Skipped),
		FailedFiles:     r.FailedNames(),
		Failures:        failures(r.Failed),
		TotalDownloaded: r.TotalDownloaded,
		TotalFailed:     r.TotalFailed,
	}
}

type FullResponse struct {
	FilesResponse
	Action          string `json:"action"`
	StorageLocation string `json:"storage_location"`
	TotalFiles      int    `json:"total_files"`
	ReviewsCount    int    `json:"reviews_count"`
	HasStats        bool   `json:"has_stats"`
}

func NewFullResponse(r *app.FullResult) FullResponse {
	files := NewFilesResponse(r.Files)
	files.Message = "Full backup completed successfully"
	files.JobID = r.JobID
	return FullResponse{
		FilesResponse:   files,
		Action:          r.Metadata.Action,
		StorageLocation: r.Files.StorageLocation,
		TotalFiles:      r.Files.TotalFiles,
		ReviewsCount:    r.Metadata.ReviewsCount,
		HasStats:        r.Metadata.HasStats,
	}
}

// StatusResponse omits the counters and the item when nothing is stored.
type StatusResponse struct {
	BackupDate       *time.Time    `json:"backup_date"`
	TotalFiles       *int          `json:"total_files,omitempty"`
	DownloadedFiles  *int          `json:"downloaded_files,omitempty"`
	ArchiveItem      *domain.Item  `json:"archive_item,omitempty"`
	Identifier       string        `json:"identifier"`
	RecentJobs       []*domain.Job `json:"recent_jobs"`
	MetadataBackedUp bool          `json:"metadata_backed_up"`
	FilesBackedUp    bool          `json:"files_backed_up"`
}

func NewStatusResponse(s *app.BackupStatus) StatusResponse {
	resp := StatusResponse{
		Identifier:       s.Identifier,
		MetadataBackedUp: s.MetadataBackedUp,
		FilesBackedUp:    s.FilesBackedUp,
		RecentJobs:       s.RecentJobs,
	}
	if resp.RecentJobs == nil {
		resp.RecentJobs = []*domain.Job{}
	}
	if s.Item != nil {
		total, downloaded := s.TotalFiles, s.DownloadedFiles
		resp.BackupDate = s.Item.BackupDate
		resp.TotalFiles = &total
		resp.DownloadedFiles = &downloaded
		resp.ArchiveItem = s.Item
	}
	return resp
}

// ItemView is one stored item as listed by the local and hybrid searches.
type ItemView struct {
	BackupDate      *time.Time         `json:"backup_date"`
	AvgRating       *float64           `json:"avg_rating"`
	NumReviews      *int64             `json:"num_reviews"`
	Identifier      string             `json:"identifier"`
	Title           string             `json:"title"`
	Date            string             `json:"date"`
	Venue           string             `json:"venue"`
	Creator         string             `json:"creator"`
	ResultSource    string             `json:"result_source,omitempty"`
	Collection      domain.StringSlice `json:"collection"`
	Metadata        domain.RawJSON     `json:"metadata"`
	TotalFiles      int                `json:"total_files"`
	DownloadedFiles int                `json:"downloaded_files"`
	IsBackedUp      bool               `json:"is_backed_up"`
}

func NewItemView(s *store.ItemSummary, source string) ItemView {
	collection := s.Collection
	if collection == nil {
		collection = domain.StringSlice{}
	}
	return ItemView{
		Identifier:      s.Identifier,
		Title:           s.Title,
		Date:            s.Date,
		Venue:           s.Venue,
		Creator:         s.Creator,
		AvgRating:       s.Rating(),
		NumReviews:      s.ReviewCount(),
		Collection:      collection,
		Metadata:        s.Metadata,
		IsBackedUp:      s.IsBackedUp,
		BackupDate:      s.BackupDate,
		TotalFiles:      s.TotalFiles,
		DownloadedFiles: s.DownloadedFiles,
		ResultSource:    source,
	}
}

func NewItemViews(items []*store.ItemSummary, source string) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, NewItemView(item, source))
	}
	return views
}

type BackupListResponse struct {
	Backups    []ItemView `json:"backups"`
	Pagination Pagination `json:"pagination"`
}

func NewBackupListResponse(r *app.LocalResult) BackupListResponse {
	return BackupListResponse{
		Backups:    NewItemViews(r.Items, ""),
		Pagination: NewPagination(r.Page, r.PerPage, r.Total),
	}
}

type JobListResponse struct {
	Jobs       []*domain.Job `json:"jobs"`
	Pagination Pagination    `json:"pagination"`
}

func NewJobListResponse(p *app.JobPage) JobListResponse {
	jobs := p.Jobs
	if jobs == nil {
		jobs = []*domain.Job{}
	}
	return JobListResponse{
		Jobs:       jobs,
		Pagination: NewPagination(p.Page, p.PerPage, p.Total),
	}
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

func failures(f []domain.FileFailure) []domain.FileFailure {
	if f == nil {
		return []domain.FileFailure{}
	}
	return f
}

package dto

import (
	"github.com/cesargomez89/archivebackup/internal/app"
	"github.com/cesargomez89/archivebackup/internal/store"
)

// RemoteSearchResponse wraps a scrape or advancedsearch answer as received.
type RemoteSearchResponse struct {
	Results   interface{} `json:"results"`
	Source    string      `json:"source"`
	SearchURL string      `json:"search_url"`
	Year      int         `json:"year,omitempty"`
	Month     int         `json:"month,omitempty"`
}

type Items[T any] struct {
	Items []T `json:"items"`
}

type LocalSearchResponse struct {
	Results    Items[ItemView] `json:"results"`
	Source     string          `json:"source"`
	Pagination Pagination      `json:"pagination"`
}

func NewLocalSearchResponse(r *app.LocalResult) LocalSearchResponse {
	return LocalSearchResponse{
		Results:    Items[ItemView]{Items: NewItemViews(r.Items, "")},
		Source:     app.SourceLocal,
		Pagination: NewPagination(r.Page, r.PerPage, r.Total),
	}
}

// HybridResponse lists local items before remote ones.
type HybridResponse struct {
	Results      Items[interface{}] `json:"results"`
	Source       string             `json:"source"`
	SearchURL    string             `json:"search_url"`
	RemoteError  string             `json:"remote_error,omitempty"`
	LocalCount   int                `json:"local_count"`
	ArchiveCount int                `json:"archive_count"`
}

func NewHybridResponse(r *app.HybridResult) HybridResponse {
	items := make([]interface{}, 0, len(r.Local)+len(r.Remote))
	for _, v := range NewItemViews(r.Local, app.SourceLocal) {
		items = append(items, v)
	}
	for _, v := range r.Remote {
		items = append(items, v)
	}
	return HybridResponse{
		Results:      Items[interface{}]{Items: items},
		Source:       app.SourceHybrid,
		SearchURL:    r.SearchURL,
		RemoteError:  r.RemoteError,
		LocalCount:   len(r.Local),
		ArchiveCount: len(r.Remote),
	}
}

type FileStats struct {
	TotalFiles      int `json:"total_files"`
	DownloadedFiles int `json:"downloaded_files"`
}

type LocalStatsResponse struct {
	YearStats        []store.YearCount    `json:"year_stats"`
	CreatorStats     []store.CreatorCount `json:"creator_stats"`
	FileStats        FileStats            `json:"file_stats"`
	TotalItems       int                  `json:"total_items"`
	FullyBackedUp    int                  `json:"fully_backed_up"`
	BackupPercentage float64              `json:"backup_percentage"`
}

func NewLocalStatsResponse(s *app.LocalStats) LocalStatsResponse {
	resp := LocalStatsResponse{
		YearStats:        s.Years,
		CreatorStats:     s.Creators,
		TotalItems:       s.TotalItems,
		FullyBackedUp:    s.BackedUpItems,
		BackupPercentage: s.BackupPercentage,
		FileStats: FileStats{
			TotalFiles:      s.TotalFiles,
			DownloadedFiles: s.DownloadedFiles,
		},
	}
	if resp.YearStats == nil {
		resp.YearStats = []store.YearCount{}
	}
	if resp.CreatorStats == nil {
		resp.CreatorStats = []store.CreatorCount{}
	}
	return resp
}

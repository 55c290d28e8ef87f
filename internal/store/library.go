package store

import (
	"context"
	"fmt"
)

type YearCount struct {
	Year  string `json:"year" db:"year"`
	Count int    `json:"count" db:"count"`
}

type CreatorCount struct {
	Creator string `json:"creator" db:"creator"`
	Count   int    `json:"count" db:"count"`
}

// LibraryStats aggregates the local copy.
type LibraryStats struct {
	Years           []YearCount    `json:"year_stats"`
	Creators        []CreatorCount `json:"creator_stats"`
	TotalItems      int            `json:"total_items"`
	BackedUpItems   int            `json:"fully_backed_up"`
	TotalFiles      int            `json:"total_files"`
	DownloadedFiles int            `json:"downloaded_files"`
}

func (db *DB) LibraryStats(ctx context.Context, topN int) (*LibraryStats, error) {
	stats := &LibraryStats{}

	var items struct {
		Total    int `db:"total"`
		BackedUp int `db:"backed_up"`
	}
	if err := db.GetContext(ctx, &items, `SELECT COUNT(*) AS total, COALESCE(SUM(is_backed_up), 0) AS backed_up FROM archive_items`); err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	stats.TotalItems = items.Total
	stats.BackedUpItems = items.BackedUp

	var files struct {
		Total      int `db:"total"`
		Downloaded int `db:"downloaded"`
	}
	if err := db.GetContext(ctx, &files, `SELECT COUNT(*) AS total, COALESCE(SUM(is_downloaded), 0) AS downloaded FROM archive_files`); err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	stats.TotalFiles = files.Total
	stats.DownloadedFiles = files.Downloaded

	if err := db.SelectContext(ctx, &stats.Years, `SELECT year, COUNT(*) AS count FROM archive_items
		WHERE year != '' GROUP BY year ORDER BY year ASC`); err != nil {
		return nil, fmt.Errorf("failed to group items by year: %w", err)
	}

	if err := db.SelectContext(ctx, &stats.Creators, `SELECT creator, COUNT(*) AS count FROM archive_items
		WHERE creator != '' GROUP BY creator ORDER BY count DESC, creator ASC LIMIT ?`, topN); err != nil {
		return nil, fmt.Errorf("failed to group items by creator: %w", err)
	}

	if stats.Years == nil {
		stats.Years = []YearCount{}
	}
	if stats.Creators == nil {
		stats.Creators = []CreatorCount{}
	}
	return stats, nil
}

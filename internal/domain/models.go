package domain

import (
	"strings"
	"time"
)

type JobType string

const (
	JobTypeMetadata JobType = "metadata"
	JobTypeFiles    JobType = "files"
	JobTypeFull     JobType = "full"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transition is expected.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is the audit record of one backup attempt
type Job struct {
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	Error       *string    `json:"error_message" db:"error_message"`
	ID          string     `json:"id" db:"id"`
	Identifier  string     `json:"identifier" db:"identifier"`
	Type        JobType    `json:"job_type" db:"job_type"`
	Status      JobStatus  `json:"status" db:"status"`
	Progress    float64    `json:"progress" db:"progress"`
}

// Item mirrors one remote catalog entry plus local backup bookkeeping.
// Title through NumReviews are normalized from Metadata when the item is ingested.
type Item struct { //nolint:govet // field ordering follows the remote document
	ID              int64       `json:"id" db:"id"`
	Identifier      string      `json:"identifier" db:"identifier"`
	Created         int64       `json:"created" db:"created"`
	D1              string      `json:"d1" db:"d1"`
	D2              string      `json:"d2" db:"d2"`
	Dir             string      `json:"dir" db:"dir"`
	FilesCount      int         `json:"files_count" db:"files_count"`
	ItemLastUpdated int64       `json:"item_last_updated" db:"item_last_updated"`
	ItemSize        int64       `json:"item_size" db:"item_size"`
	Server          string      `json:"server" db:"server"`
	Uniq            int64       `json:"uniq" db:"uniq"`
	WorkableServers StringSlice `json:"workable_servers" db:"workable_servers"`
	Metadata        RawJSON     `json:"metadata" db:"metadata"`
	Title           string      `json:"title" db:"title"`
	Creator         string      `json:"creator" db:"creator"`
	Date            string      `json:"date" db:"date"`
	Venue           string      `json:"venue" db:"venue"`
	Year            string      `json:"year" db:"year"`
	Collection      StringSlice `json:"collection" db:"collection"`
	AvgRating       *float64    `json:"avg_rating" db:"avg_rating"`
	NumReviews      *int64      `json:"num_reviews" db:"num_reviews"`
	IsBackedUp      bool        `json:"is_backed_up" db:"is_backed_up"`
	BackupDate      *time.Time  `json:"backup_date" db:"backup_date"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// File is one downloadable asset of an Item, keyed by (ItemIdentifier, Name).
type File struct { //nolint:govet // field ordering follows the remote listing
	ID             int64      `json:"id" db:"id"`
	ItemIdentifier string     `json:"item_identifier" db:"item_identifier"`
	Name           string     `json:"name" db:"name"`
	Source         string     `json:"source" db:"source"`
	Format         string     `json:"format" db:"format"`
	Mtime          string     `json:"mtime" db:"mtime"`
	Size           string     `json:"size" db:"size"`
	MD5            string     `json:"md5" db:"md5"`
	CRC32          string     `json:"crc32" db:"crc32"`
	SHA1           string     `json:"sha1" db:"sha1"`
	Length         string     `json:"length" db:"length"`
	Height         string     `json:"height" db:"height"`
	Width          string     `json:"width" db:"width"`
	Track          string     `json:"track" db:"track"`
	Album          string     `json:"album" db:"album"`
	Artist         string     `json:"artist" db:"artist"`
	Title          string     `json:"title" db:"title"`
	Bitrate        string     `json:"bitrate" db:"bitrate"`
	Creator        string     `json:"creator" db:"creator"`
	Private        bool       `json:"private" db:"private"`
	Rotation       string     `json:"rotation" db:"rotation"`
	Summation      string     `json:"summation" db:"summation"`
	HasArtwork     bool       `json:"has_artwork" db:"has_artwork"`
	LocalPath      string     `json:"local_path" db:"local_path"`
	IsDownloaded   bool       `json:"is_downloaded" db:"is_downloaded"`
	DownloadDate   *time.Time `json:"download_date" db:"download_date"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// HasExtension reports whether the file name ends with one of exts, ignoring case.
func (f *File) HasExtension(exts []string) bool {
	return HasExtension(f.Name, exts)
}

// HasExtension matches whole extensions: "mp3" and ".mp3" both mean ".mp3".
func HasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Stats holds rating and download counters from the search endpoint.
type Stats struct {
	LastUpdated    time.Time `json:"last_updated" db:"last_updated"`
	AvgRating      *float64  `json:"avg_rating" db:"avg_rating"`
	NumReviews     *int64    `json:"num_reviews" db:"num_reviews"`
	Downloads      *int64    `json:"downloads" db:"downloads"`
	DownloadsWeek  *int64    `json:"downloads_week" db:"downloads_week"`
	DownloadsMonth *int64    `json:"downloads_month" db:"downloads_month"`
	ItemIdentifier string    `json:"item_identifier" db:"item_identifier"`
	Stars          RawJSON   `json:"stars" db:"stars"`
	ID             int64     `json:"id" db:"id"`
}

// Review has no identity beyond its Item; the set is replaced on every refresh.
type Review struct {
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	ItemIdentifier   string    `json:"item_identifier" db:"item_identifier"`
	ReviewBody       string    `json:"reviewbody" db:"review_body"`
	ReviewTitle      string    `json:"reviewtitle" db:"review_title"`
	Reviewer         string    `json:"reviewer" db:"reviewer"`
	ReviewDate       string    `json:"reviewdate" db:"review_date"`
	CreateDate       string    `json:"createdate" db:"create_date"`
	Stars            string    `json:"stars" db:"stars"`
	ReviewerItemName string    `json:"reviewer_itemname" db:"reviewer_itemname"`
	ID               int64     `json:"id" db:"id"`
}

// FileFailure is a non-fatal download failure collected during a files backup.
type FileFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

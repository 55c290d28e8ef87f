// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort              = "8080"
	DefaultDBPath            = "archive_backup.db"
	DefaultStorageDir        = "storage/files"
	DefaultArchiveBaseURL    = "https://archive.org/"
	DefaultCollection        = "GratefulDead"
	DefaultRequestTimeout    = 10 * time.Second
	DefaultRequestsPerSecond = 5.0
	DefaultUserAgent         = "ArchiveBackup/1.0 (Archive.org backup tool)"
	DefaultSearchCacheTTL    = 10 * time.Minute
	DefaultBreakerFailures   = 5
	DefaultBreakerTimeout    = 30 * time.Second
	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = time.Minute
)

// Search modes for local filtering
const (
	SearchModeSubstring  = "substring"
	SearchModeStructured = "structured"
)

// Pagination
const (
	DefaultPerPage   = 20
	MaxPerPage       = 200
	HybridLocalLimit = 20
	RecentJobsLimit  = 5
)

// Remote query defaults
const (
	DefaultStartYear = 1965
	DefaultEndYear   = 2025
	MaxRating        = "5.0"
	SBDCollection    = "stream_only"
	DateRangeFields  = "identifier,date,venue,transferer,source,coverage,stars,avg_rating,num_reviews,collection,creator"
	StatsFields      = "avg_rating,num_reviews,stars,downloads,week,month"
)

// DefaultCreatorCollections are organized by creator on the archive rather than by collection.
var DefaultCreatorCollections = []string{"etree", "PhilLeshAndFriends", "BobWeir"}

// DefaultAudioExtensions is the allow-list used when none is configured.
var DefaultAudioExtensions = []string{ExtMP3}

// File Extensions
const (
	ExtFLAC = ".flac"
	ExtMP3  = ".mp3"
	ExtOGG  = ".ogg"
	ExtPart = ".part"
)

// Database
const (
	ItemsTable   = "archive_items"
	FilesTable   = "archive_files"
	StatsTable   = "archive_item_stats"
	ReviewsTable = "archive_item_reviews"
	JobsTable    = "backup_jobs"
	CacheTable   = "cache"
)

// Downloads
const (
	DownloadChunkSize = 8192
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

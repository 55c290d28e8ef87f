package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cesargomez89/archivebackup/internal/catalog"
	"github.com/cesargomez89/archivebackup/internal/constants"
	"github.com/cesargomez89/archivebackup/internal/domain"
	"github.com/cesargomez89/archivebackup/internal/logger"
	"github.com/cesargomez89/archivebackup/internal/metrics"
	"github.com/cesargomez89/archivebackup/internal/storage"
	"github.com/cesargomez89/archivebackup/internal/store"
	"github.com/cesargomez89/archivebackup/internal/tagging"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// metadataShare is the part of a full backup's progress given to the metadata step.
const metadataShare = 0.1

type BackupConfig struct {
	StorageRoot     string
	AudioExtensions []string
	VerifyChecksums bool
	ReadTags        bool
}

type MetadataResult struct {
	Identifier   string `json:"identifier"`
	Action       string `json:"action"`
	JobID        string `json:"job_id"`
	ReviewsCount int    `json:"reviews_count"`
	HasStats     bool   `json:"has_stats"`
}

type FilesResult struct {
	Identifier      string               `json:"identifier"`
	StorageLocation string               `json:"storage_location"`
	JobID           string               `json:"job_id"`
	Downloaded      []string             `json:"downloaded_files"`
	Skipped         []string             `json:"skipped_files"`
	Failed          []domain.FileFailure `json:"failures"`
	TotalDownloaded int                  `json:"total_downloaded"`
	TotalFailed     int                  `json:"total_failed"`
	TotalFiles      int                  `json:"total_files"`
}

// FailedNames lists the names of the files that failed.
func (r *FilesResult) FailedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		names = append(names, f.Name)
	}
	return names
}

type FullResult struct {
	Metadata *MetadataResult `json:"metadata"`
	Files    *FilesResult    `json:"files"`
	JobID    string          `json:"job_id"`
}

// BackupService reconciles remote items with the local store. Work on one
// identifier is serialized; files are handled one at a time in listing order.
type BackupService struct {
	Repo    *store.DB
	Catalog catalog.Catalog
	Jobs    *JobService
	Logger  *logger.Logger
	locks   *KeyedMutex
	now     func() time.Time
	cfg     BackupConfig
}

func NewBackupService(repo *store.DB, cat catalog.Catalog, jobs *JobService, cfg BackupConfig, log *logger.Logger) *BackupService {
	if log == nil {
		log = logger.Default()
	}
	if len(cfg.AudioExtensions) == 0 {
		cfg.AudioExtensions = constants.DefaultAudioExtensions
	}
	if cfg.StorageRoot == "" {
		cfg.StorageRoot = constants.DefaultStorageDir
	}
	return &BackupService{
		Repo:    repo,
		Catalog: cat,
		Jobs:    jobs,
		Logger:  log.WithComponent("backup"),
		locks:   NewKeyedMutex(),
		now:     func() time.Time { return time.Now().UTC() },
		cfg:     cfg,
	}
}

// StorageLocation is where files of identifier end up on disk.
func (s *BackupService) StorageLocation(identifier string) string {
	return filepath.ToSlash(filepath.Join(s.cfg.StorageRoot, identifier)) + "/"
}

// BackupMetadata creates or refreshes the item, its file listing and its
// reviews, then tries to refresh stats.
func (s *BackupService) BackupMetadata(ctx context.Context, identifier string) (*MetadataResult, error) {
	var result *MetadataResult
	jobID, err := s.runJob(ctx, identifier, domain.JobTypeMetadata, func(ctx context.Context, jobID string, log *logger.Logger) error {
		res, _, err := s.syncMetadata(ctx, identifier, log)
		result = res
		return err
	})
	if err != nil {
		return nil, err
	}
	result.JobID = jobID
	return result, nil
}

// BackupFiles downloads the audio files of an item already stored locally.
// Per-file failures are collected and the item is marked backed up regardless.
func (s *BackupService) BackupFiles(ctx context.Context, identifier string) (*FilesResult, error) {
	var result *FilesResult
	jobID, err := s.runJob(ctx, identifier, domain.JobTypeFiles, func(ctx context.Context, jobID string, log *logger.Logger) error {
		item, err := s.Repo.FindItem(ctx, identifier)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: %s", domain.ErrNotBackedUp, identifier)
		}

		doc, err := s.Catalog.FetchMetadata(ctx, identifier)
		if err != nil {
			return err
		}
		if !doc.HasFiles() {
			return fmt.Errorf("%w: no file listing for %s", domain.ErrRemoteNotFound, identifier)
		}

		result, err = s.syncFiles(ctx, identifier, doc, log, s.progress(ctx, jobID, 0, 1))
		return err
	})
	if err != nil {
		return nil, err
	}
	result.JobID = jobID
	return result, nil
}

// BackupFull runs the metadata step and, if it succeeds, the files step
// against the listing it just fetched. Both run under one lock and one job.
func (s *BackupService) BackupFull(ctx context.Context, identifier string) (*FullResult, error) {
	result := &FullResult{}
	jobID, err := s.runJob(ctx, identifier, domain.JobTypeFull, func(ctx context.Context, jobID string, log *logger.Logger) error {
		meta, doc, err := s.syncMetadata(ctx, identifier, log)
		if err != nil {
			return err
		}
		result.Metadata = meta
		s.setProgress(ctx, jobID, metadataShare)

		files, err := s.syncFiles(ctx, identifier, doc, log, s.progress(ctx, jobID, metadataShare, 1-metadataShare))
		if err != nil {
			return err
		}
		result.Files = files
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.JobID = jobID
	result.Metadata.JobID = jobID
	result.Files.JobID = jobID
	return result, nil
}

// QuickBackup backs up metadata only for identifiers not stored yet.
func (s *BackupService) QuickBackup(ctx context.Context, identifier string) (*MetadataResult, error) {
	if err := validateIdentifier(identifier); err != nil {
		return nil, err
	}
	existing, err := s.Repo.FindItem(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyExists, identifier)
	}
	return s.BackupMetadata(ctx, identifier)
}

// runJob records the job, takes the identifier lock and stores the outcome.
// Failing to write the job row is logged and does not stop the backup.
func (s *BackupService) runJob(ctx context.Context, identifier string, jobType domain.JobType,
	fn func(ctx context.Context, jobID string, log *logger.Logger) error) (string, error) {
	if err := validateIdentifier(identifier); err != nil {
		return "", err
	}

	start := time.Now()
	metrics.TrackBackupInFlight(true)
	defer metrics.TrackBackupInFlight(false)

	var jobID string
	job, err := s.Jobs.RecordJobStart(ctx, identifier, jobType)
	if err != nil {
		s.Logger.Warn("Failed to record job", "identifier", identifier, "type", jobType, "error", err)
	} else {
		jobID = job.ID
	}
	log := s.Logger.WithJob(jobID, string(jobType)).WithIdentifier(identifier)

	err = s.locked(ctx, identifier, func() error {
		if jobID != "" {
			if err := s.Jobs.MarkRunning(ctx, jobID); err != nil {
				log.Warn("Failed to mark job running", "error", err)
			}
		}
		log.Info("Backup started")
		return fn(ctx, jobID, log)
	})

	status := domain.JobStatusCompleted
	if err != nil {
		status = domain.JobStatusFailed
		log.Error("Backup failed", "error", err)
	} else {
		log.Info("Backup completed", "duration", time.Since(start))
	}
	if jobID != "" {
		if jerr := s.Jobs.RecordJobOutcome(context.WithoutCancel(ctx), jobID, status, err); jerr != nil {
			log.Warn("Failed to record job outcome", "error", jerr)
		}
	}
	metrics.RecordBackup(string(jobType), time.Since(start), err)
	return jobID, err
}

func (s *BackupService) locked(ctx context.Context, identifier string, fn func() error) error {
	unlock, err := s.locks.Lock(ctx, identifier)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// syncMetadata writes the item, its listing and its reviews in one unit of
// work. Files no longer listed remotely stop counting as downloaded. Stats are refreshed afterwards in their own unit and never fail the step.
func (s *BackupService) syncMetadata(ctx context.Context, identifier string, log *logger.Logger) (*MetadataResult, *catalog.ItemMetadata, error) {
	doc, err := s.Catalog.FetchMetadata(ctx, identifier)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	item := doc.ToItem(identifier, now)

	uow, err := s.Repo.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer uow.Rollback()

	created, err := uow.UpsertItem(ctx, item)
	if err != nil {
		return nil, nil, err
	}
	if err := uow.SyncFiles(ctx, doc.FileList(identifier, now)); err != nil {
		return nil, nil, err
	}
	if doc.HasFiles() {
		demoted, err := uow.DemoteMissingFiles(ctx, identifier, doc.FileNames())
		if err != nil {
			return nil, nil, err
		}
		if demoted > 0 {
			log.Info("Files dropped from the remote listing", "count", demoted)
		}
	}
	reviewsCount, err := uow.ReplaceReviews(ctx, identifier, doc.ReviewList(identifier, now))
	if err != nil {
		return nil, nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, nil, err
	}

	action := ActionUpdated
	if created {
		action = ActionCreated
	}
	log.Info("Metadata stored", "action", action, "reviews", reviewsCount, "files", len(doc.Files))

	return &MetadataResult{
		Identifier:   identifier,
		Action:       action,
		ReviewsCount: reviewsCount,
		HasStats:     s.refreshStats(ctx, identifier, log),
	}, doc, nil
}

// refreshStats reports whether a stats row exists after the attempt.
func (s *BackupService) refreshStats(ctx context.Context, identifier string, log *logger.Logger) bool {
	stats, err := s.Catalog.FetchStats(ctx, identifier)
	switch {
	case err != nil:
		log.Warn("Could not fetch stats", "error", err)
	case stats != nil:
		if err := s.storeStats(ctx, identifier, stats); err != nil {
			log.Warn("Could not store stats", "error", err)
		}
	}

	existing, err := s.Repo.FindStats(ctx, identifier)
	if err != nil {
		log.Warn("Could not read stats", "error", err)
		return false
	}
	return existing != nil
}

func (s *BackupService) storeStats(ctx context.Context, identifier string, stats *domain.Stats) error {
	uow, err := s.Repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback()
	if err := uow.UpsertStats(ctx, identifier, stats); err != nil {
		return err
	}
	return uow.Commit()
}

// syncFiles downloads every audio file of the listing that is not already
// downloaded. A failing file is recorded and the loop moves on; store errors
// and cancellation end the step.
func (s *BackupService) syncFiles(ctx context.Context, identifier string, doc *catalog.ItemMetadata,
	log *logger.Logger, progress func(done, total int)) (*FilesResult, error) {
	var candidates []*catalog.RemoteFile
	for i := range doc.Files {
		name := string(doc.Files[i].Name)
		if name != "" && domain.HasExtension(name, s.cfg.AudioExtensions) {
			candidates = append(candidates, &doc.Files[i])
		}
	}

	result := &FilesResult{
		Identifier:      identifier,
		StorageLocation: s.StorageLocation(identifier),
		Downloaded:      []string{},
		Skipped:         []string{},
		Failed:          []domain.FileFailure{},
		TotalFiles:      len(candidates),
	}

	// Listing names that clean to the same path would share one file on disk.
	// The first one in listing order owns the path.
	claimed := make(map[string]string, len(candidates))

	for i, rf := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := string(rf.Name)
		if target, err := storage.CleanName(name); err == nil {
			if owner, ok := claimed[target]; ok {
				err := fmt.Errorf("%w: %q collides with %q", domain.ErrUnsafePath, name, owner)
				result.Failed = append(result.Failed, domain.FileFailure{Name: name, Error: err.Error()})
				metrics.FileFailures.WithLabelValues(failureReason(err)).Inc()
				log.Warn("File name collides with another listing entry", "name", name, "owner", owner)
				progress(i+1, len(candidates))
				continue
			}
			claimed[target] = name
		}

		existing, err := s.Repo.FindFile(ctx, identifier, name)
		if err != nil {
			return nil, err
		}

		if existing != nil && existing.IsDownloaded {
			result.Skipped = append(result.Skipped, name)
			metrics.FilesSkipped.Inc()
			log.Debug("File already downloaded", "name", name)
		} else if file, err := s.fetchFile(ctx, identifier, rf, existing, log); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Failed = append(result.Failed, domain.FileFailure{Name: name, Error: err.Error()})
			metrics.FileFailures.WithLabelValues(failureReason(err)).Inc()
			log.Warn("File download failed", "name", name, "error", err)
		} else {
			if err := s.recordFile(ctx, file); err != nil {
				return nil, err
			}
			result.Downloaded = append(result.Downloaded, name)
			metrics.FilesDownloaded.Inc()
			log.Info("File downloaded", "name", name, "index", i+1, "total", len(candidates))
		}

		progress(i+1, len(candidates))
	}

	uow, err := s.Repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	if doc.HasFiles() {
		if _, err := uow.DemoteMissingFiles(ctx, identifier, doc.FileNames()); err != nil {
			return nil, err
		}
	}
	if err := uow.MarkItemBackedUp(ctx, identifier, s.now()); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	result.TotalDownloaded = len(result.Downloaded)
	result.TotalFailed = len(result.Failed)
	return result, nil
}

// fetchFile downloads and checks one file and returns the record to store.
func (s *BackupService) fetchFile(ctx context.Context, identifier string, rf *catalog.RemoteFile, existing *domain.File, log *logger.Logger) (*domain.File, error) {
	name := string(rf.Name)
	path, err := s.Catalog.DownloadFile(ctx, identifier, name, nil)
	if err != nil {
		return nil, err
	}

	if s.cfg.VerifyChecksums {
		if err := storage.VerifyChecksums(path, string(rf.MD5), string(rf.SHA1)); err != nil {
			if rmErr := storage.RemoveFile(path); rmErr != nil {
				log.Warn("Failed to remove corrupt file", "path", path, "error", rmErr)
			}
			return nil, err
		}
	}

	now := s.now()
	file := rf.ToFile(identifier, now)
	if existing != nil {
		file.ID = existing.ID
		file.CreatedAt = existing.CreatedAt
		file.HasArtwork = existing.HasArtwork
	}
	file.LocalPath = path
	file.IsDownloaded = true
	file.DownloadDate = &now

	if s.cfg.ReadTags {
		tags, err := tagging.ReadTags(path)
		switch {
		case err == nil:
			tags.Apply(file)
		case !errors.Is(err, tagging.ErrUnsupportedFormat):
			log.Debug("Could not read tags", "name", name, "error", err)
		}
	}

	return file, nil
}

func (s *BackupService) recordFile(ctx context.Context, file *domain.File) error {
	uow, err := s.Repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback()
	if err := uow.UpsertFile(ctx, file); err != nil {
		return err
	}
	return uow.Commit()
}

// progress maps file progress onto [base, base+span] of the job.
func (s *BackupService) progress(ctx context.Context, jobID string, base, span float64) func(done, total int) {
	return func(done, total int) {
		if total == 0 {
			return
		}
		s.setProgress(ctx, jobID, base+span*float64(done)/float64(total))
	}
}

func (s *BackupService) setProgress(ctx context.Context, jobID string, p float64) {
	if jobID == "" {
		return
	}
	if err := s.Jobs.UpdateProgress(ctx, jobID, p); err != nil {
		s.Logger.Debug("Failed to update job progress", "job_id", jobID, "error", err)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, domain.ErrFilesystem):
		return "filesystem"
	default:
		return "remote"
	}
}

// validateIdentifier accepts identifiers that are a single path component.
func validateIdentifier(identifier string) error {
	if strings.TrimSpace(identifier) == "" {
		return fmt.Errorf("%w: empty identifier", domain.ErrInvalidIdentifier)
	}
	if identifier == "." || identifier == ".." || strings.ContainsAny(identifier, "/\\\x00") {
		return fmt.Errorf("%w: %q", domain.ErrInvalidIdentifier, identifier)
	}
	return nil
}

package app

import (
	"net/http"

	"github.com/cesargomez89/archivebackup/internal/catalog"
	"github.com/cesargomez89/archivebackup/internal/config"
	"github.com/cesargomez89/archivebackup/internal/constants"
	"github.com/cesargomez89/archivebackup/internal/httpclient"
	"github.com/cesargomez89/archivebackup/internal/logger"
	"github.com/cesargomez89/archivebackup/internal/store"
)

// Services is the set of application services sharing one store and one catalog client.
type Services struct {
	Catalog *catalog.CachedCatalog
	Jobs    *JobService
	Backup  *BackupService
	Search  *SearchService
	Library *LibraryService
}

func NewServices(cfg *config.Config, db *store.DB, log *logger.Logger) *Services {
	hc := httpclient.NewClient(
		&http.Client{Transport: httpclient.NewTransport(cfg.RequestTimeout)},
		cfg.RequestsPerSecond,
		cfg.UserAgent,
	)
	client := catalog.NewClient(hc, catalog.Config{
		BaseURL:            cfg.ArchiveBaseURL,
		StorageRoot:        cfg.StorageDir,
		CreatorCollections: cfg.CreatorCollections,
		RequestTimeout:     cfg.RequestTimeout,
		BreakerOpenTimeout: cfg.BreakerOpenTimeout,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
	}, log)
	cached := catalog.NewCachedCatalog(client, db, cfg.SearchCacheTTL, log)

	jobs := NewJobService(db, log)
	backup := NewBackupService(db, cached, jobs, BackupConfig{
		StorageRoot:     cfg.StorageDir,
		AudioExtensions: cfg.AudioExtensions,
		VerifyChecksums: cfg.VerifyChecksums,
		ReadTags:        cfg.ReadTags,
	}, log)
	structured := cfg.SearchMatchMode == constants.SearchModeStructured

	return &Services{
		Catalog: cached,
		Jobs:    jobs,
		Backup:  backup,
		Search:  NewSearchService(db, cached, cfg.DefaultCollection, structured, log),
		Library: NewLibraryService(db, jobs, log),
	}
}

package httpapp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/cesargomez89/archivebackup/internal/app"
	"github.com/cesargomez89/archivebackup/internal/logger"
)

type Handler struct {
	Backup  *app.BackupService
	Search  *app.SearchService
	Library *app.LibraryService
	Logger  *logger.Logger

	// BackupLimit caps backup requests per client IP within BackupWindow. Zero disables it.
	BackupLimit  int
	BackupWindow time.Duration
}

func NewHandler(backup *app.BackupService, search *app.SearchService, library *app.LibraryService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		Backup:  backup,
		Search:  search,
		Library: library,
		Logger:  log.WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/backup", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(h.rateLimit())
				r.Post("/metadata/{identifier}", h.BackupMetadata)
				r.Post("/files/{identifier}", h.BackupFiles)
				r.Post("/full/{identifier}", h.BackupFull)
			})
			r.Get("/status/{identifier}", h.BackupStatus)
			r.Get("/list", h.ListBackups)
			r.Get("/jobs", h.ListJobs)
		})

		r.Route("/search", func(r chi.Router) {
			r.Get("/archive", h.SearchArchive)
			r.Get("/local", h.SearchLocal)
			r.Get("/hybrid", h.SearchHybrid)
			r.Get("/date_range", h.SearchDateRange)
			r.Get("/year_total", h.YearTotal)
			r.Get("/local_stats", h.LocalStats)
		})

		r.With(h.rateLimit()).Post("/quick_backup", h.QuickBackup)
		r.Get("/metadata/{identifier}", h.Metadata)
	})
}

func (h *Handler) rateLimit() func(http.Handler) http.Handler {
	if h.BackupLimit <= 0 || h.BackupWindow <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.LimitByIP(h.BackupLimit, h.BackupWindow)
}

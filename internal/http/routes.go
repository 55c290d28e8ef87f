package httpapp

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/cesargomez89/archivebackup/internal/app"
	"github.com/cesargomez89/archivebackup/internal/domain"
	"github.com/cesargomez89/archivebackup/internal/http/dto"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 16

func (h *Handler) BackupMetadata(w http.ResponseWriter, r *http.Request) {
	result, err := h.Backup.BackupMetadata(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewMetadataResponse(result))
}

func (h *Handler) BackupFiles(w http.ResponseWriter, r *http.Request) {
	result, err := h.Backup.BackupFiles(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewFilesResponse(result))
}

func (h *Handler) BackupFull(w http.ResponseWriter, r *http.Request) {
	result, err := h.Backup.BackupFull(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewFullResponse(result))
}

func (h *Handler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Library.Status(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewStatusResponse(status))
}

func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	q, err := dto.ParsePageQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.Library.ListBackups(r.Context(), q.Page, q.PerPage)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewBackupListResponse(result))
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q, err := dto.ParsePageQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jobs, err := h.Library.ListJobs(r.Context(), q.Page, q.PerPage)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewJobListResponse(jobs))
}

func (h *Handler) SearchArchive(w http.ResponseWriter, r *http.Request) {
	q, err := dto.ParseSearchQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.Search.SearchRemote(r.Context(), searchQuery(q))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.RemoteSearchResponse{
		Results:   result.Payload,
		Source:    app.SourceArchive,
		SearchURL: result.SearchURL,
	})
}

func (h *Handler) SearchLocal(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q, err := dto.ParseSearchQuery(values)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := dto.ParsePageQuery(values)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.Search.SearchLocal(r.Context(), searchQuery(q), page.Page, page.PerPage)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewLocalSearchResponse(result))
}

func (h *Handler) SearchHybrid(w http.ResponseWriter, r *http.Request) {
	q, err := dto.ParseSearchQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.Search.SearchHybrid(r.Context(), searchQuery(q))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewHybridResponse(result))
}

func (h *Handler) SearchDateRange(w http.ResponseWriter, r *http.Request) {
	q, err := dto.ParseDateRangeQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.Search.DateRange(r.Context(), q.Year, q.Month, q.SBDOnly, q.Collection)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.RemoteSearchResponse{
		Results:   result.Payload,
		Source:    app.SourceArchive,
		SearchURL: result.SearchURL,
		Year:      q.Year,
		Month:     q.Month,
	})
}

func (h *Handler) YearTotal(w http.ResponseWriter, r *http.Request) {
	q, err := dto.ParseDateRangeQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.Search.YearTotal(r.Context(), q.Year, q.SBDOnly, q.Collection)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.RemoteSearchResponse{
		Results:   result.Payload,
		Source:    app.SourceArchive,
		SearchURL: result.SearchURL,
		Year:      q.Year,
	})
}

func (h *Handler) LocalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Search.LocalStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewLocalStatsResponse(stats))
}

func (h *Handler) QuickBackup(w http.ResponseWriter, r *http.Request) {
	var req dto.QuickBackupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid JSON body"})
		return
	}
	if err := dto.Validate(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.Backup.QuickBackup(r.Context(), req.Identifier)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewMetadataResponse(result))
}

// Metadata proxies the remote document without touching the store.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Search.RemoteMetadata(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Library.Ping(r.Context()); err != nil {
		h.Logger.Error("Health check failed", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func searchQuery(q dto.SearchQuery) app.SearchQuery {
	return app.SearchQuery{
		SearchTerm: q.SearchTerm,
		Venue:      q.Venue,
		MinRating:  q.MinRating,
		StartYear:  q.StartYear,
		EndYear:    q.EndYear,
		Creator:    q.Creator,
		Collection: q.Collection,
		SBDOnly:    q.SBDOnly,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	var verrs dto.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, domain.ErrInvalidIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotBackedUp), errors.Is(err, domain.ErrRemoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRemoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := dto.ErrorResponse{Error: err.Error()}

	var verrs dto.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Error = "validation failed"
		resp.Fields = dto.ToMap(verrs)
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, resp)
}

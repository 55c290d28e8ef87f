package app

import (
	"context"
	"fmt"
	"math"

	"github.com/cesargomez89/archivebackup/internal/catalog"
	"github.com/cesargomez89/archivebackup/internal/constants"
	"github.com/cesargomez89/archivebackup/internal/logger"
	"github.com/cesargomez89/archivebackup/internal/store"
)

const (
	SourceLocal   = "local"
	SourceArchive = "archive.org"
	SourceHybrid  = "hybrid"
)

// SearchQuery carries the filters shared by the remote, local and hybrid searches.
type SearchQuery struct {
	SearchTerm string
	Venue      string
	MinRating  string
	StartYear  string
	EndYear    string
	Creator    string
	Collection string
	SBDOnly    bool
}

func (q SearchQuery) remote(defaultCollection string) catalog.SearchParams {
	collection := q.Collection
	if collection == "" {
		collection = defaultCollection
	}
	return catalog.SearchParams{
		SearchTerm: q.SearchTerm,
		Venue:      q.Venue,
		MinRating:  q.MinRating,
		StartYear:  q.StartYear,
		EndYear:    q.EndYear,
		SBDOnly:    q.SBDOnly,
		Collection: collection,
	}
}

func (q SearchQuery) local(structured bool) store.ItemFilter {
	return store.ItemFilter{
		SearchTerm: q.SearchTerm,
		Venue:      q.Venue,
		MinRating:  q.MinRating,
		StartYear:  q.StartYear,
		EndYear:    q.EndYear,
		Creator:    q.Creator,
		Structured: structured,
	}
}

type RemoteResult struct {
	Payload   *catalog.SearchPayload
	SearchURL string
}

type TotalsResult struct {
	Payload   *catalog.TotalsPayload
	SearchURL string
}

type LocalResult struct {
	Items   []*store.ItemSummary
	Page    int
	PerPage int
	Total   int
}

// HybridResult lists local items first, then remote items not stored locally.
type HybridResult struct {
	Local       []*store.ItemSummary
	Remote      []map[string]interface{}
	SearchURL   string
	RemoteError string
}

type LocalStats struct {
	*store.LibraryStats
	BackupPercentage float64 `json:"backup_percentage"`
}

// SearchService answers searches over the local copy and the remote catalog.
type SearchService struct {
	Repo              *store.DB
	Catalog           catalog.Catalog
	Logger            *logger.Logger
	DefaultCollection string
	Structured        bool
}

func NewSearchService(repo *store.DB, cat catalog.Catalog, defaultCollection string, structured bool, log *logger.Logger) *SearchService {
	if log == nil {
		log = logger.Default()
	}
	if defaultCollection == "" {
		defaultCollection = constants.DefaultCollection
	}
	return &SearchService{
		Repo:              repo,
		Catalog:           cat,
		Logger:            log.WithComponent("search"),
		DefaultCollection: defaultCollection,
		Structured:        structured,
	}
}

func (s *SearchService) collection(c string) string {
	if c == "" {
		return s.DefaultCollection
	}
	return c
}

func (s *SearchService) SearchRemote(ctx context.Context, q SearchQuery) (*RemoteResult, error) {
	url := s.Catalog.URLs().SearchTermURL(q.remote(s.DefaultCollection))
	payload, err := s.Catalog.FetchSearchResults(ctx, url)
	if err != nil {
		return nil, err
	}
	return &RemoteResult{Payload: payload, SearchURL: url}, nil
}

// DateRange browses one month, or the whole year when month is 0.
func (s *SearchService) DateRange(ctx context.Context, year, month int, sbdOnly bool, collection string) (*RemoteResult, error) {
	if month < 0 || month > 12 {
		return nil, fmt.Errorf("month out of range: %d", month)
	}
	urls := s.Catalog.URLs()
	var url string
	if month == 0 {
		url = urls.DateRangeYearURL(year, sbdOnly, s.collection(collection))
	} else {
		url = urls.DateRangeURL(year, month, sbdOnly, s.collection(collection))
	}

	payload, err := s.Catalog.FetchSearchResults(ctx, url)
	if err != nil {
		return nil, err
	}
	return &RemoteResult{Payload: payload, SearchURL: url}, nil
}

func (s *SearchService) YearTotal(ctx context.Context, year int, sbdOnly bool, collection string) (*TotalsResult, error) {
	url := s.Catalog.URLs().YearTotalURL(year, sbdOnly, s.collection(collection))
	payload, err := s.Catalog.FetchTotals(ctx, url)
	if err != nil {
		return nil, err
	}
	return &TotalsResult{Payload: payload, SearchURL: url}, nil
}

func (s *SearchService) SearchLocal(ctx context.Context, q SearchQuery, page, perPage int) (*LocalResult, error) {
	page, perPage = normalizePage(page, perPage)
	items, total, err := s.Repo.ListItems(ctx, page, perPage, q.local(s.Structured))
	if err != nil {
		return nil, err
	}
	return &LocalResult{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// SearchHybrid never fails on the remote side: the error is reported in
// RemoteError and the local results are still returned.
func (s *SearchService) SearchHybrid(ctx context.Context, q SearchQuery) (*HybridResult, error) {
	local, _, err := s.Repo.ListItems(ctx, 1, constants.HybridLocalLimit, q.local(s.Structured))
	if err != nil {
		return nil, err
	}
	result := &HybridResult{Local: local, Remote: []map[string]interface{}{}}

	remote, err := s.SearchRemote(ctx, q)
	if err != nil {
		s.Logger.Warn("Remote part of hybrid search failed", "error", err)
		result.RemoteError = err.Error()
		return result, nil
	}
	result.SearchURL = remote.SearchURL

	stored, err := s.Repo.ItemIdentifiers(ctx, remote.Payload.Identifiers())
	if err != nil {
		return nil, err
	}
	for _, item := range local {
		stored[item.Identifier] = true
	}

	for _, item := range remote.Payload.Items {
		id, _ := item["identifier"].(string)
		if stored[id] {
			continue
		}
		entry := make(map[string]interface{}, len(item)+2)
		for k, v := range item {
			entry[k] = v
		}
		entry["result_source"] = SourceArchive
		entry["is_backed_up"] = false
		result.Remote = append(result.Remote, entry)
	}
	return result, nil
}

func (s *SearchService) LocalStats(ctx context.Context) (*LocalStats, error) {
	stats, err := s.Repo.LibraryStats(ctx, constants.DefaultPerPage)
	if err != nil {
		return nil, err
	}
	out := &LocalStats{LibraryStats: stats}
	if stats.TotalItems > 0 {
		pct := float64(stats.BackedUpItems) / float64(stats.TotalItems) * 100
		out.BackupPercentage = math.Round(pct*10) / 10
	}
	return out, nil
}

// RemoteMetadata returns the metadata document as the archive sent it.
func (s *SearchService) RemoteMetadata(ctx context.Context, identifier string) (*catalog.ItemMetadata, error) {
	if err := validateIdentifier(identifier); err != nil {
		return nil, err
	}
	return s.Catalog.FetchMetadata(ctx, identifier)
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = constants.DefaultPerPage
	}
	if perPage > constants.MaxPerPage {
		perPage = constants.MaxPerPage
	}
	return page, perPage
}

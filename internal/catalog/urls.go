package catalog

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cesargomez89/archivebackup/internal/constants"
)

// URLBuilder builds every remote URL. Query values are percent-encoded with
// %20 for spaces so the archive sees the same grammar it documents.
type URLBuilder struct {
	BaseURL            string
	CreatorCollections []string
}

func NewURLBuilder(baseURL string, creatorCollections []string) *URLBuilder {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if creatorCollections == nil {
		creatorCollections = constants.DefaultCreatorCollections
	}
	return &URLBuilder{BaseURL: baseURL, CreatorCollections: creatorCollections}
}

// IsCreatorBased reports whether the archive files this collection under
// creator rather than collection.
func (b *URLBuilder) IsCreatorBased(collection string) bool {
	for _, c := range b.CreatorCollections {
		if c == collection {
			return true
		}
	}
	return false
}

func escapeQuery(q string) string {
	return strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
}

func (b *URLBuilder) MetadataURL(identifier string) string {
	return b.BaseURL + "metadata/" + url.PathEscape(identifier)
}

// DownloadURL escapes each path segment of filename and keeps the separators.
func (b *URLBuilder) DownloadURL(identifier, filename string) string {
	u := b.BaseURL + "download/" + url.PathEscape(identifier)
	if filename == "" {
		return u
	}
	segments := strings.Split(strings.ReplaceAll(filename, "\\", "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return u + "/" + strings.Join(segments, "/")
}

// scopeClause is the collection part of scrape and advancedsearch queries.
func (b *URLBuilder) scopeClause(collection string, sbdOnly bool) string {
	switch {
	case b.IsCreatorBased(collection):
		return fmt.Sprintf(`creator:"%s"`, collection)
	case sbdOnly:
		return fmt.Sprintf("collection:(%s AND %s)", collection, constants.SBDCollection)
	default:
		return fmt.Sprintf("collection:(%s)", collection)
	}
}

func dateClause(start, end string) string {
	return fmt.Sprintf("date:[%s TO %s]", start, end)
}

func (b *URLBuilder) scrapeURL(q string) string {
	return fmt.Sprintf("%sservices/search/v1/scrape?fields=%s&q=%s", b.BaseURL, constants.DateRangeFields, escapeQuery(q))
}

// LastDayOfMonth follows the calendar, leap years included.
func LastDayOfMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateRangeURL lists one month of shows.
func (b *URLBuilder) DateRangeURL(year, month int, sbdOnly bool, collection string) string {
	start := fmt.Sprintf("%d-%02d-01", year, month)
	end := fmt.Sprintf("%d-%02d-%02d", year, month, LastDayOfMonth(year, month))
	return b.scrapeURL(b.scopeClause(collection, sbdOnly) + " AND " + dateClause(start, end))
}

// DateRangeYearURL lists one year of shows.
func (b *URLBuilder) DateRangeYearURL(year int, sbdOnly bool, collection string) string {
	start := fmt.Sprintf("%d-01-01", year)
	end := fmt.Sprintf("%d-12-31", year)
	return b.scrapeURL(b.scopeClause(collection, sbdOnly) + " AND " + dateClause(start, end))
}

// YearTotalURL counts one year of shows without returning rows.
func (b *URLBuilder) YearTotalURL(year int, sbdOnly bool, collection string) string {
	start := fmt.Sprintf("%d-01-01", year)
	end := fmt.Sprintf("%d-12-31", year)
	q := b.scopeClause(collection, sbdOnly) + " AND " + dateClause(start, end)
	return fmt.Sprintf("%sadvancedsearch.php?q=%s&output=json&rows=0", b.BaseURL, escapeQuery(q))
}

// SearchParams are the remote search filters. Empty fields are ignored.
type SearchParams struct {
	SearchTerm string
	Venue      string
	MinRating  string
	StartYear  string
	EndYear    string
	Collection string
	SBDOnly    bool
}

// SearchTermURL builds a free-text search within a collection and year span.
func (b *URLBuilder) SearchTermURL(p SearchParams) string {
	collection := p.Collection
	if collection == "" {
		collection = constants.DefaultCollection
	}

	var parts []string
	switch {
	case b.IsCreatorBased(collection) && p.SBDOnly:
		parts = append(parts, fmt.Sprintf(`creator:"%s" AND collection:%s`, collection, constants.SBDCollection))
	case b.IsCreatorBased(collection):
		parts = append(parts, fmt.Sprintf(`creator:"%s"`, collection))
	case p.SBDOnly:
		parts = append(parts, fmt.Sprintf("collection:(%s AND %s)", collection, constants.SBDCollection))
	default:
		parts = append(parts, "collection:"+collection)
	}

	if p.SearchTerm != "" {
		parts = append(parts, p.SearchTerm)
	}

	startYear := p.StartYear
	if startYear == "" {
		startYear = fmt.Sprint(constants.DefaultStartYear)
	}
	endYear := p.EndYear
	if endYear == "" {
		endYear = fmt.Sprint(constants.DefaultEndYear)
	}
	parts = append(parts, dateClause(startYear+"-01-01", endYear+"-12-31"))

	if p.MinRating != "" {
		parts = append(parts, fmt.Sprintf("(avg_rating:[%s TO %s])", p.MinRating, constants.MaxRating))
	}
	if p.Venue != "" {
		parts = append(parts, fmt.Sprintf("(venue:%s)", p.Venue))
	}

	return b.scrapeURL(strings.Join(parts, " AND "))
}

// StatsURL fetches rating and download counters for one identifier.
func (b *URLBuilder) StatsURL(identifier string) string {
	return fmt.Sprintf("%sservices/search/v1/scrape?fields=%s&q=%s",
		b.BaseURL, constants.StatsFields, escapeQuery("identifier:"+identifier))
}

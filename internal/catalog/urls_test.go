package catalog

import (
	"net/url"
	"strings"
	"testing"
)

func queryOf(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse %s: %v", raw, err)
	}
	return u.Query()
}

func TestURLBuilder_IsCreatorBased(t *testing.T) {
	b := NewURLBuilder("https://archive.org/", nil)

	tests := []struct {
		collection string
		want       bool
	}{
		{"etree", true},
		{"PhilLeshAndFriends", true},
		{"BobWeir", true},
		{"GratefulDead", false},
		{"bobweir", false},
	}
	for _, tt := range tests {
		if got := b.IsCreatorBased(tt.collection); got != tt.want {
			t.Errorf("IsCreatorBased(%q): expected %v, got %v", tt.collection, tt.want, got)
		}
	}
}

func TestURLBuilder_MetadataAndDownload(t *testing.T) {
	b := NewURLBuilder("https://archive.org", nil)

	if got := b.MetadataURL("gd1977-05-08.sbd.miller.flac16"); got != "https://archive.org/metadata/gd1977-05-08.sbd.miller.flac16" {
		t.Errorf("Unexpected metadata URL: %s", got)
	}

	got := b.DownloadURL("gd77", "disc 1/d1t01 #1.mp3")
	want := "https://archive.org/download/gd77/disc%201/d1t01%20%231.mp3"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestURLBuilder_DateRangeURL(t *testing.T) {
	b := NewURLBuilder("https://archive.org/", nil)

	got := b.DateRangeURL(1977, 5, false, "GratefulDead")
	want := "https://archive.org/services/search/v1/scrape?fields=identifier,date,venue,transferer,source,coverage,stars,avg_rating,num_reviews,collection,creator" +
		"&q=collection%3A%28GratefulDead%29%20AND%20date%3A%5B1977-05-01%20TO%201977-05-31%5D"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	q := queryOf(t, b.DateRangeURL(1977, 5, true, "GratefulDead")).Get("q")
	if q != "collection:(GratefulDead AND stream_only) AND date:[1977-05-01 TO 1977-05-31]" {
		t.Errorf("Unexpected sbd query: %s", q)
	}

	// Creator-based collections ignore the soundboard flag.
	q = queryOf(t, b.DateRangeURL(1990, 2, true, "etree")).Get("q")
	if q != `creator:"etree" AND date:[1990-02-01 TO 1990-02-28]` {
		t.Errorf("Unexpected creator query: %s", q)
	}

	q = queryOf(t, b.DateRangeYearURL(1972, false, "GratefulDead")).Get("q")
	if q != "collection:(GratefulDead) AND date:[1972-01-01 TO 1972-12-31]" {
		t.Errorf("Unexpected year query: %s", q)
	}
}

func TestLastDayOfMonth(t *testing.T) {
	tests := []struct {
		year, month, want int
	}{
		{1977, 2, 28},
		{1980, 2, 29},
		{2000, 2, 29},
		{1900, 2, 28},
		{1977, 4, 30},
		{1977, 12, 31},
	}
	for _, tt := range tests {
		if got := LastDayOfMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("LastDayOfMonth(%d, %d): expected %d, got %d", tt.year, tt.month, tt.want, got)
		}
	}
}

func TestURLBuilder_YearTotalURL(t *testing.T) {
	b := NewURLBuilder("https://archive.org/", nil)

	got := b.YearTotalURL(1977, false, "GratefulDead")
	if !strings.HasPrefix(got, "https://archive.org/advancedsearch.php?q=") {
		t.Errorf("Unexpected prefix: %s", got)
	}
	if !strings.HasSuffix(got, "&output=json&rows=0") {
		t.Errorf("Unexpected suffix: %s", got)
	}
	if q := queryOf(t, got).Get("q"); q != "collection:(GratefulDead) AND date:[1977-01-01 TO 1977-12-31]" {
		t.Errorf("Unexpected query: %s", q)
	}
}

func TestURLBuilder_SearchTermURL(t *testing.T) {
	b := NewURLBuilder("https://archive.org/", nil)

	tests := []struct {
		name   string
		params SearchParams
		want   string
	}{
		{
			name:   "defaults",
			params: SearchParams{},
			want:   "collection:GratefulDead AND date:[1965-01-01 TO 2025-12-31]",
		},
		{
			name: "all filters",
			params: SearchParams{
				SearchTerm: "Cornell",
				Venue:      "Barton Hall",
				MinRating:  "4",
				StartYear:  "1977",
				EndYear:    "1978",
				SBDOnly:    true,
				Collection: "GratefulDead",
			},
			want: "collection:(GratefulDead AND stream_only) AND Cornell AND date:[1977-01-01 TO 1978-12-31] AND (avg_rating:[4 TO 5.0]) AND (venue:Barton Hall)",
		},
		{
			name:   "creator collection",
			params: SearchParams{Collection: "BobWeir"},
			want:   `creator:"BobWeir" AND date:[1965-01-01 TO 2025-12-31]`,
		},
		{
			name:   "creator collection sbd",
			params: SearchParams{Collection: "BobWeir", SBDOnly: true},
			want:   `creator:"BobWeir" AND collection:stream_only AND date:[1965-01-01 TO 2025-12-31]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := b.SearchTermURL(tt.params)
			if strings.Contains(raw, "+") {
				t.Errorf("Expected spaces encoded as %%20, got %s", raw)
			}
			if got := queryOf(t, raw).Get("q"); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestURLBuilder_StatsURL(t *testing.T) {
	b := NewURLBuilder("https://archive.org/", nil)

	vals := queryOf(t, b.StatsURL("gd77"))
	if vals.Get("fields") != "avg_rating,num_reviews,stars,downloads,week,month" {
		t.Errorf("Unexpected fields: %s", vals.Get("fields"))
	}
	if vals.Get("q") != "identifier:gd77" {
		t.Errorf("Unexpected query: %s", vals.Get("q"))
	}
}

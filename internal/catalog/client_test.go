package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cesargomez89/archivebackup/internal/domain"
	"github.com/cesargomez89/archivebackup/internal/httpclient"
	"github.com/cesargomez89/archivebackup/internal/logger"
)

const sampleMetadata = `{
	"created": 1700000000,
	"d1": "ia800000.us.archive.org",
	"d2": "ia900000.us.archive.org",
	"dir": "/7/items/gd77",
	"files_count": 2,
	"item_last_updated": 1690000000,
	"item_size": 123456,
	"server": "ia800000.us.archive.org",
	"uniq": 42,
	"workable_servers": ["ia800000.us.archive.org", "ia900000.us.archive.org"],
	"metadata": {
		"identifier": "gd77",
		"title": ["Grateful Dead Live at Barton Hall"],
		"creator": "Grateful Dead",
		"date": "1977-05-08",
		"venue": "Barton Hall, Cornell University",
		"collection": ["GratefulDead", "etree"],
		"avg_rating": "4.85",
		"num_reviews": 312
	},
	"files": [
		{"name": "d1t01.mp3", "format": "VBR MP3", "size": "1024", "md5": "abc", "private": "false"},
		{"name": "gd77.flac16.txt", "format": "Text"}
	],
	"reviews": [
		{"reviewbody": "Legendary", "reviewtitle": "Best ever", "reviewer": "deadhead", "stars": "5"}
	]
}`

func newTestClient(t *testing.T, baseURL string, cfg Config) *Client {
	t.Helper()
	cfg.BaseURL = baseURL
	if cfg.StorageRoot == "" {
		cfg.StorageRoot = t.TempDir()
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 2 * time.Second
	}
	hc := httpclient.NewClient(nil, 0, "test-agent")
	return NewClient(hc, cfg, logger.Discard())
}

func TestClient_FetchMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metadata/gd77" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleMetadata))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})
	doc, err := client.FetchMetadata(context.Background(), "gd77")
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}

	if !doc.HasFiles() || len(doc.Files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(doc.Files))
	}
	if len(doc.Raw) == 0 {
		t.Error("Expected raw body to be kept")
	}

	now := time.Now().UTC()
	item := doc.ToItem("gd77", now)
	if item.Title != "Grateful Dead Live at Barton Hall" {
		t.Errorf("Unexpected title: %s", item.Title)
	}
	if item.Creator != "Grateful Dead" {
		t.Errorf("Unexpected creator: %s", item.Creator)
	}
	if item.Year != "1977" {
		t.Errorf("Expected year derived from date, got %q", item.Year)
	}
	if item.AvgRating == nil || *item.AvgRating != 4.85 {
		t.Errorf("Unexpected avg rating: %v", item.AvgRating)
	}
	if item.NumReviews == nil || *item.NumReviews != 312 {
		t.Errorf("Unexpected num reviews: %v", item.NumReviews)
	}
	if len(item.Collection) != 2 || len(item.WorkableServers) != 2 {
		t.Errorf("Unexpected lists: %v %v", item.Collection, item.WorkableServers)
	}
	if item.Created != 1700000000 || item.ItemSize != 123456 || item.FilesCount != 2 {
		t.Errorf("Unexpected remote fields: %+v", item)
	}
	if strings.Contains(string(item.Metadata), "\n") || !strings.Contains(string(item.Metadata), `"avg_rating":"4.85"`) {
		t.Errorf("Expected compact metadata, got %s", item.Metadata)
	}

	files := doc.FileList("gd77", now)
	if files[0].Name != "d1t01.mp3" || files[0].MD5 != "abc" || files[0].Private {
		t.Errorf("Unexpected file: %+v", files[0])
	}

	reviews := doc.ReviewList("gd77", now)
	if len(reviews) != 1 || reviews[0].ReviewTitle != "Best ever" || reviews[0].Stars != "5" {
		t.Errorf("Unexpected reviews: %+v", reviews)
	}
}

func TestClient_FetchMetadataNestedReviews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"metadata": {"identifier": "x", "reviews": [{"reviewbody": "nested"}]}, "files": []}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})
	doc, err := client.FetchMetadata(context.Background(), "x")
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}
	reviews := doc.ReviewList("x", time.Now())
	if len(reviews) != 1 || reviews[0].ReviewBody != "nested" {
		t.Errorf("Expected nested review, got %+v", reviews)
	}
	if !doc.HasFiles() {
		t.Error("Expected empty files key to count as present")
	}
}

func TestClient_FetchMetadataErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"empty document", http.StatusOK, `{}`, domain.ErrRemoteNotFound},
		{"not found", http.StatusNotFound, `not found`, domain.ErrRemoteNotFound},
		{"server error", http.StatusServiceUnavailable, ``, domain.ErrRemoteNotFound},
		{"invalid json", http.StatusOK, `{"metadata": `, domain.ErrRemoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, Config{})
			doc, err := client.FetchMetadata(context.Background(), "missing")
			if doc != nil {
				t.Error("Expected no partial result")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestClient_TransportErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(t, url, Config{})
	_, err := client.FetchMetadata(context.Background(), "gd77")
	if !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Errorf("Expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestClient_TimeoutIsUnavailable(t *testing.T) {
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(done)

	client := newTestClient(t, server.URL, Config{RequestTimeout: 50 * time.Millisecond})
	_, err := client.FetchMetadata(context.Background(), "slow")
	if !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Errorf("Expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestClient_BreakerOpens(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{BreakerMaxFailures: 2, BreakerOpenTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := client.FetchMetadata(ctx, "gd77"); !errors.Is(err, domain.ErrRemoteNotFound) {
			t.Fatalf("Call %d: expected ErrRemoteNotFound, got %v", i, err)
		}
	}

	_, err := client.FetchMetadata(ctx, "gd77")
	if !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Errorf("Expected open breaker to report ErrRemoteUnavailable, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("Expected 2 requests to reach the server, got %d", got)
	}
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{BreakerMaxFailures: 1})
	for i := 0; i < 3; i++ {
		_, _ = client.FetchMetadata(context.Background(), "gd77")
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("Expected 3 requests, got %d", got)
	}
}

func TestClient_FetchStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "identifier:none" {
			_, _ = w.Write([]byte(`{"items": [], "count": 0}`))
			return
		}
		_, _ = w.Write([]byte(`{"items": [{"avg_rating": 4.5, "num_reviews": "10", "stars": [1, 0, 0, 2, 7], "downloads": 5000, "week": 12, "month": 40}], "count": 1}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})
	stats, err := client.FetchStats(context.Background(), "gd77")
	if err != nil {
		t.Fatalf("FetchStats failed: %v", err)
	}
	if stats.ItemIdentifier != "gd77" {
		t.Errorf("Unexpected identifier: %s", stats.ItemIdentifier)
	}
	if stats.AvgRating == nil || *stats.AvgRating != 4.5 {
		t.Errorf("Unexpected rating: %v", stats.AvgRating)
	}
	if stats.NumReviews == nil || *stats.NumReviews != 10 {
		t.Errorf("Unexpected num reviews: %v", stats.NumReviews)
	}
	if stats.DownloadsWeek == nil || *stats.DownloadsWeek != 12 || stats.DownloadsMonth == nil || *stats.DownloadsMonth != 40 {
		t.Errorf("Unexpected download counters: %v %v", stats.DownloadsWeek, stats.DownloadsMonth)
	}
	if string(stats.Stars) != "[1, 0, 0, 2, 7]" {
		t.Errorf("Unexpected stars: %s", stats.Stars)
	}

	stats, err = client.FetchStats(context.Background(), "none")
	if err != nil || stats != nil {
		t.Errorf("Expected nil stats without error, got %v, %v", stats, err)
	}
}

func TestClient_FetchSearchResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": [{"identifier": "a"}, {"identifier": "b"}, {"date": "x"}], "count": 3, "total": 3}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})
	payload, err := client.FetchSearchResults(context.Background(), client.URLs().DateRangeURL(1977, 5, false, "GratefulDead"))
	if err != nil {
		t.Fatalf("FetchSearchResults failed: %v", err)
	}
	ids := payload.Identifiers()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("Unexpected identifiers: %v", ids)
	}
	if payload.Total != 3 {
		t.Errorf("Expected total 3, got %d", payload.Total)
	}
}

func TestClient_DownloadFile(t *testing.T) {
	body := strings.Repeat("a", 20000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/download/gd77/disc 1/d1t01.mp3" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Length", "20000")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	root := t.TempDir()
	client := newTestClient(t, server.URL, Config{StorageRoot: root})

	var last float64
	var calls int
	path, err := client.DownloadFile(context.Background(), "gd77", "disc 1/d1t01.mp3", func(p float64) {
		calls++
		last = p
	})
	if err != nil {
		t.Fatalf("DownloadFile failed: %v", err)
	}

	want := filepath.Join(root, "gd77", "disc 1", "d1t01.mp3")
	if path != want {
		t.Errorf("Expected %s, got %s", want, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read download: %v", err)
	}
	if string(data) != body {
		t.Errorf("Expected %d bytes, got %d", len(body), len(data))
	}
	if calls < 2 || last != 1 {
		t.Errorf("Expected progress to reach 1 over several chunks, got %d calls ending at %f", calls, last)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected only the final file, got %d entries", len(entries))
	}
}

func TestClient_DownloadFileRejectsTraversal(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	root := t.TempDir()
	client := newTestClient(t, server.URL, Config{StorageRoot: filepath.Join(root, "files")})

	for _, name := range []string{"../../etc/passwd", "..\\..\\evil.mp3", "a/../../b.mp3"} {
		_, err := client.DownloadFile(context.Background(), "gd77", name, nil)
		if !errors.Is(err, domain.ErrUnsafePath) {
			t.Errorf("%s: expected ErrUnsafePath, got %v", name, err)
		}
	}

	if _, err := client.DownloadFile(context.Background(), "../gd77", "a.mp3", nil); !errors.Is(err, domain.ErrUnsafePath) {
		t.Errorf("Expected ErrUnsafePath for identifier, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 0 {
		t.Errorf("Expected no requests, got %d", got)
	}
	if _, err := os.Stat(filepath.Join(root, "etc")); !os.IsNotExist(err) {
		t.Error("Expected nothing written outside the storage root")
	}
}

func TestClient_DownloadFileShortBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("partial"))
	}))
	defer server.Close()

	root := t.TempDir()
	client := newTestClient(t, server.URL, Config{StorageRoot: root})

	_, err := client.DownloadFile(context.Background(), "gd77", "d1t01.mp3", nil)
	if !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Errorf("Expected ErrRemoteUnavailable, got %v", err)
	}

	entries, _ := os.ReadDir(filepath.Join(root, "gd77"))
	if len(entries) != 0 {
		t.Errorf("Expected no files left behind, got %d", len(entries))
	}
}

func TestClient_DownloadFileNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	root := t.TempDir()
	client := newTestClient(t, server.URL, Config{StorageRoot: root})

	_, err := client.DownloadFile(context.Background(), "gd77", "d1t01.mp3", nil)
	if !errors.Is(err, domain.ErrRemoteNotFound) {
		t.Errorf("Expected ErrRemoteNotFound, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "gd77", "d1t01.mp3")); !os.IsNotExist(err) {
		t.Error("Expected no final file")
	}
}

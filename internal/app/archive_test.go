package app

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/cesargomez89/archivebackup/internal/catalog"
	"github.com/cesargomez89/archivebackup/internal/httpclient"
	"github.com/cesargomez89/archivebackup/internal/logger"
	"github.com/cesargomez89/archivebackup/internal/store"
)

// fakeArchive stands in for the metadata, scrape and download endpoints.
type fakeArchive struct {
	mu          sync.Mutex
	docs        map[string]string
	content     map[string]string
	broken      map[string]bool
	downloads   map[string]int
	searchItems []map[string]interface{}
	statsStatus int
	searchFail  bool
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{
		docs:      make(map[string]string),
		content:   make(map[string]string),
		broken:    make(map[string]bool),
		downloads: make(map[string]int),
	}
}

type fakeFile struct {
	Name    string
	Content string
	MD5     string
}

func (a *fakeArchive) setItem(identifier string, files []fakeFile, reviews ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	listing := []map[string]interface{}{}
	for _, f := range files {
		entry := map[string]interface{}{"name": f.Name, "format": "VBR MP3", "size": fmt.Sprint(len(f.Content))}
		if f.MD5 != "" {
			entry["md5"] = f.MD5
		}
		listing = append(listing, entry)
		a.content[identifier+"/"+f.Name] = f.Content
	}
	reviewList := []map[string]interface{}{}
	for i, r := range reviews {
		reviewList = append(reviewList, map[string]interface{}{
			"reviewbody":  r,
			"reviewtitle": fmt.Sprintf("Review %d", i+1),
			"reviewer":    "taper",
			"stars":       "5",
		})
	}

	doc := map[string]interface{}{
		"created":          1700000000,
		"d1":               "ia800000.us.archive.org",
		"dir":              "/items/" + identifier,
		"files_count":      len(files),
		"item_size":        1000,
		"server":           "ia800000.us.archive.org",
		"workable_servers": []string{"ia800000.us.archive.org"},
		"metadata": map[string]interface{}{
			"identifier": identifier,
			"title":      "Grateful Dead Live at Barton Hall on 1977-05-08",
			"creator":    "Grateful Dead",
			"date":       "1977-05-08",
			"venue":      "Barton Hall",
			"year":       "1977",
			"collection": []string{"GratefulDead", "etree"},
		},
		"files":   listing,
		"reviews": reviewList,
	}
	data, _ := json.Marshal(doc)
	a.docs[identifier] = string(data)
}

func (a *fakeArchive) downloadCount(identifier, name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.downloads[identifier+"/"+name]
}

func (a *fakeArchive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/metadata/"):
		doc, ok := a.docs[strings.TrimPrefix(r.URL.Path, "/metadata/")]
		if !ok {
			doc = "{}"
		}
		_, _ = w.Write([]byte(doc))

	case r.URL.Path == "/services/search/v1/scrape":
		if strings.HasPrefix(r.URL.Query().Get("q"), "identifier:") {
			if a.statsStatus != 0 {
				w.WriteHeader(a.statsStatus)
				return
			}
			_, _ = w.Write([]byte(`{"items": [{"avg_rating": 4.8, "num_reviews": 3, "stars": [0, 0, 0, 1, 2], "downloads": 100, "week": 1, "month": 5}], "count": 1}`))
			return
		}
		if a.searchFail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		data, _ := json.Marshal(map[string]interface{}{"items": a.searchItems, "count": len(a.searchItems), "total": len(a.searchItems)})
		_, _ = w.Write(data)

	case r.URL.Path == "/advancedsearch.php":
		_, _ = w.Write([]byte(`{"response": {"numFound": 77, "start": 0, "docs": []}}`))

	case strings.HasPrefix(r.URL.Path, "/download/"):
		key := strings.TrimPrefix(r.URL.Path, "/download/")
		a.downloads[key]++
		if a.broken[key] {
			hj, ok := w.(http.Hijacker)
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			conn, _, err := hj.Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		body, ok := a.content[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		_, _ = w.Write([]byte(body))

	default:
		http.NotFound(w, r)
	}
}

type testEnv struct {
	db      *store.DB
	archive *fakeArchive
	catalog *catalog.Client
	jobs    *JobService
	backup  *BackupService
	search  *SearchService
	library *LibraryService
	root    string
}

func newTestEnv(t *testing.T, cfg BackupConfig) *testEnv {
	t.Helper()

	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test_app.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	archive := newFakeArchive()
	server := httptest.NewServer(archive)
	t.Cleanup(server.Close)

	root := filepath.Join(t.TempDir(), "files")
	cfg.StorageRoot = root
	if cfg.AudioExtensions == nil {
		cfg.AudioExtensions = []string{".mp3"}
	}

	log := logger.Discard()
	client := catalog.NewClient(httpclient.NewClient(nil, 0, "test-agent"), catalog.Config{
		BaseURL:            server.URL,
		StorageRoot:        root,
		RequestTimeout:     2 * time.Second,
		BreakerMaxFailures: 1000,
	}, log)
	jobs := NewJobService(db, log)

	return &testEnv{
		db:      db,
		archive: archive,
		catalog: client,
		jobs:    jobs,
		backup:  NewBackupService(db, client, jobs, cfg, log),
		search:  NewSearchService(db, client, "GratefulDead", false, log),
		library: NewLibraryService(db, jobs, log),
		root:    root,
	}
}

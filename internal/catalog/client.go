package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cesargomez89/archivebackup/internal/constants"
	"github.com/cesargomez89/archivebackup/internal/domain"
	"github.com/cesargomez89/archivebackup/internal/httpclient"
	"github.com/cesargomez89/archivebackup/internal/logger"
	"github.com/cesargomez89/archivebackup/internal/metrics"
	"github.com/cesargomez89/archivebackup/internal/storage"
)

// Catalog is the remote archive as seen by the backup engine and the search facade.
type Catalog interface {
	FetchMetadata(ctx context.Context, identifier string) (*ItemMetadata, error)
	FetchSearchResults(ctx context.Context, url string) (*SearchPayload, error)
	FetchTotals(ctx context.Context, url string) (*TotalsPayload, error)
	FetchStats(ctx context.Context, identifier string) (*domain.Stats, error)
	DownloadFile(ctx context.Context, identifier, name string, onProgress func(float64)) (string, error)
	URLs() *URLBuilder
}

type Config struct {
	BaseURL            string
	StorageRoot        string
	CreatorCollections []string
	RequestTimeout     time.Duration
	BreakerOpenTimeout time.Duration
	BreakerMaxFailures uint32
}

// Client talks to the archive. Every request makes one attempt behind a
// shared circuit breaker.
type Client struct {
	http    *httpclient.Client
	urls    *URLBuilder
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *logger.Logger
	root    string
	timeout time.Duration
}

func NewClient(hc *httpclient.Client, cfg Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = constants.DefaultRequestTimeout
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = constants.DefaultBreakerFailures
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = constants.DefaultBreakerTimeout
	}
	if cfg.StorageRoot == "" {
		cfg.StorageRoot = constants.DefaultStorageDir
	}
	log = log.WithComponent("catalog")

	return &Client{
		http:    hc,
		urls:    NewURLBuilder(cfg.BaseURL, cfg.CreatorCollections),
		breaker: newBreaker("archive", cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout, log),
		logger:  log,
		root:    cfg.StorageRoot,
		timeout: cfg.RequestTimeout,
	}
}

func (c *Client) URLs() *URLBuilder {
	return c.urls
}

// get performs one GET through the breaker. Non-2xx answers come back as
// *statusError with the body already closed.
func (c *Client) get(ctx context.Context, endpoint, url string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.http.Get(ctx, url)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, &statusError{URL: url, Code: resp.StatusCode}
		}
		return resp, nil
	})

	outcome := "ok"
	if err != nil {
		err = classifyRemote(err)
		outcome = "error"
	}
	metrics.RecordRemoteRequest(endpoint, outcome, time.Since(start))
	return resp, err
}

// getJSON fetches url within the request timeout, decodes it into v and
// returns the raw body.
func (c *Client) getJSON(ctx context.Context, endpoint, url string, v interface{}) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.get(ctx, endpoint, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", domain.ErrRemoteUnavailable, endpoint, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, fmt.Errorf("%w: invalid %s response: %v", domain.ErrRemoteUnavailable, endpoint, err)
	}
	return body, nil
}

// FetchMetadata returns the metadata document. The archive answers unknown
// identifiers with an empty object, which is reported as not found.
func (c *Client) FetchMetadata(ctx context.Context, identifier string) (*ItemMetadata, error) {
	var doc ItemMetadata
	raw, err := c.getJSON(ctx, "metadata", c.urls.MetadataURL(identifier), &doc)
	if err != nil {
		return nil, err
	}
	if doc.IsEmpty() {
		return nil, fmt.Errorf("%w: %s", domain.ErrRemoteNotFound, identifier)
	}
	if err := doc.decodeFields(); err != nil {
		return nil, fmt.Errorf("%w: invalid metadata for %s: %v", domain.ErrRemoteUnavailable, identifier, err)
	}
	doc.Raw = raw
	return &doc, nil
}

func (c *Client) FetchSearchResults(ctx context.Context, url string) (*SearchPayload, error) {
	var payload SearchPayload
	raw, err := c.getJSON(ctx, "search", url, &payload)
	if err != nil {
		return nil, err
	}
	payload.Raw = raw
	return &payload, nil
}

func (c *Client) FetchTotals(ctx context.Context, url string) (*TotalsPayload, error) {
	var payload TotalsPayload
	raw, err := c.getJSON(ctx, "totals", url, &payload)
	if err != nil {
		return nil, err
	}
	payload.Raw = raw
	return &payload, nil
}

// FetchStats returns nil, nil when the search endpoint has no row for identifier.
func (c *Client) FetchStats(ctx context.Context, identifier string) (*domain.Stats, error) {
	var payload statsPayload
	if _, err := c.getJSON(ctx, "stats", c.urls.StatsURL(identifier), &payload); err != nil {
		return nil, err
	}
	if len(payload.Items) == 0 {
		return nil, nil
	}
	return payload.Items[0].toStats(identifier, time.Now().UTC()), nil
}

// DownloadFile streams one file to {root}/{identifier}/{name}. The body is
// written to a hidden partial file and renamed into place only when complete.
func (c *Client) DownloadFile(ctx context.Context, identifier, name string, onProgress func(float64)) (string, error) {
	dir, err := storage.ItemDir(c.root, identifier)
	if err != nil {
		return "", err
	}
	target, err := storage.SafeJoin(dir, name)
	if err != nil {
		return "", err
	}
	if err := storage.EnsureDir(filepath.Dir(target)); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}

	// Only the wait for headers is bounded up front; afterwards the
	// timeout applies to gaps between reads.
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	idle := time.AfterFunc(c.timeout, cancel)
	defer idle.Stop()

	resp, err := c.get(ctx, "download", c.urls.DownloadURL(identifier, name))
	if err != nil {
		if parent.Err() == nil && errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: timed out waiting for %s", domain.ErrRemoteUnavailable, name)
		}
		return "", err
	}
	defer resp.Body.Close()

	tmp, err := storage.CreateTemp(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}
	tmpPath := tmp.Name()

	written, err := copyChunks(tmp, resp.Body, resp.ContentLength, func() { idle.Reset(c.timeout) }, onProgress)
	closeErr := tmp.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %v", domain.ErrFilesystem, closeErr)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	metrics.BytesDownloaded.Add(float64(written))

	if err := storage.MoveFile(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}

	c.logger.Debug("file downloaded", "identifier", identifier, "name", name, "bytes", written)
	return target, nil
}

// copyChunks copies in fixed-size chunks, reporting progress when the total is known.
func copyChunks(dst io.Writer, src io.Reader, total int64, onRead func(), onProgress func(float64)) (int64, error) {
	buf := make([]byte, constants.DownloadChunkSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			onRead()
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("%w: %v", domain.ErrFilesystem, werr)
			}
			written += int64(n)
			if onProgress != nil && total > 0 {
				onProgress(float64(written) / float64(total))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, fmt.Errorf("%w: download interrupted: %v", domain.ErrRemoteUnavailable, rerr)
		}
	}
	if total > 0 && written != total {
		return written, fmt.Errorf("%w: short body: got %d of %d bytes", domain.ErrRemoteUnavailable, written, total)
	}
	return written, nil
}

var _ Catalog = (*Client)(nil)

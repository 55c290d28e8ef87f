package catalog

import (
	"context"
	"time"

	json "github.com/goccy/go-json"

	"github.com/cesargomez89/archivebackup/internal/domain"
	"github.com/cesargomez89/archivebackup/internal/logger"
	"github.com/cesargomez89/archivebackup/internal/metrics"
	"github.com/cesargomez89/archivebackup/internal/store"
)

type Cache interface {
	GetCache(ctx context.Context, key string) ([]byte, error)
	SetCache(ctx context.Context, key string, data []byte, ttl time.Duration) error
	ClearCache(ctx context.Context) error
}

// CachedCatalog serves browse and search payloads from the cache. Metadata,
// stats and downloads always go to the archive.
type CachedCatalog struct {
	catalog  Catalog
	cache    Cache
	logger   *logger.Logger
	cacheTTL time.Duration
}

func NewCachedCatalog(catalog Catalog, cache Cache, cacheTTL time.Duration, log *logger.Logger) *CachedCatalog {
	if log == nil {
		log = logger.Default()
	}
	return &CachedCatalog{
		catalog:  catalog,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log.WithComponent("catalog_cache"),
	}
}

func (c *CachedCatalog) FetchSearchResults(ctx context.Context, url string) (*SearchPayload, error) {
	cacheKey := "search:" + url

	if data := c.lookup(ctx, cacheKey); data != nil {
		var payload SearchPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			payload.Raw = data
			return &payload, nil
		}
	}

	payload, err := c.catalog.FetchSearchResults(ctx, url)
	if err != nil {
		return nil, err
	}
	c.save(ctx, cacheKey, payload.Raw)
	return payload, nil
}

func (c *CachedCatalog) FetchTotals(ctx context.Context, url string) (*TotalsPayload, error) {
	cacheKey := "totals:" + url

	if data := c.lookup(ctx, cacheKey); data != nil {
		var payload TotalsPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			payload.Raw = data
			return &payload, nil
		}
	}

	payload, err := c.catalog.FetchTotals(ctx, url)
	if err != nil {
		return nil, err
	}
	c.save(ctx, cacheKey, payload.Raw)
	return payload, nil
}

// lookup treats cache errors as misses so a broken cache never hides the archive.
func (c *CachedCatalog) lookup(ctx context.Context, key string) []byte {
	if c.cacheTTL <= 0 {
		return nil
	}
	data, err := c.cache.GetCache(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return nil
	}
	if data == nil {
		metrics.SearchCacheMisses.Inc()
		return nil
	}
	metrics.SearchCacheHits.Inc()
	return data
}

func (c *CachedCatalog) save(ctx context.Context, key string, data []byte) {
	if c.cacheTTL <= 0 || len(data) == 0 {
		return
	}
	if err := c.cache.SetCache(ctx, key, data, c.cacheTTL); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (c *CachedCatalog) FetchMetadata(ctx context.Context, identifier string) (*ItemMetadata, error) {
	return c.catalog.FetchMetadata(ctx, identifier)
}

func (c *CachedCatalog) FetchStats(ctx context.Context, identifier string) (*domain.Stats, error) {
	return c.catalog.FetchStats(ctx, identifier)
}

func (c *CachedCatalog) DownloadFile(ctx context.Context, identifier, name string, onProgress func(float64)) (string, error) {
	return c.catalog.DownloadFile(ctx, identifier, name, onProgress)
}

func (c *CachedCatalog) URLs() *URLBuilder {
	return c.catalog.URLs()
}

func (c *CachedCatalog) ClearCache(ctx context.Context) error {
	return c.cache.ClearCache(ctx)
}

var _ Catalog = (*CachedCatalog)(nil)

var _ Cache = (*store.DB)(nil)

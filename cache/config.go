package cache

import (
	"github.com/goliatone/go-advocate-search/internal/cacheinfra"
)

// Cache tags used by the advocate read path.
const (
	// TagAdvocates is carried by every advocate read; invalidating it clears
	// the whole directory cache.
	TagAdvocates = "advocates"
	// TagList selects the short TTL class used by unfiltered listings.
	TagList = "advocates:list"
	// TagSearch selects the TTL class used by search results.
	TagSearch = "advocates:search"
)

// Config configures the cache service. TagTTLs maps a tag to its TTL class;
// entries whose tags have no class live for TTL.
type Config = cacheinfra.Config

// EarlyRefreshConfig mirrors the sturdyc early refresh options.
type EarlyRefreshConfig = cacheinfra.EarlyRefreshConfig

// DefaultConfig returns a Config populated with the directory defaults:
// listings live 60s, searches 300s, anything else 5m.
func DefaultConfig() Config {
	return cacheinfra.DefaultConfig()
}

// NewCacheService constructs the sturdyc backed cache service.
func NewCacheService(cfg Config) (CacheService, error) {
	svc, err := cacheinfra.NewSturdycService(cfg)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

package redis

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/university"
	"github.com/abroad-hub/counsellor/pkg/circuitbreaker"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

// LookupRecorder receives hit/miss observations.
type LookupRecorder interface {
	CacheLookup(cache string, hit bool)
}

type nopLookupRecorder struct{}

func (nopLookupRecorder) CacheLookup(string, bool) {}

const (
	cacheUniversity = "university"
	cacheCatalog    = "catalog"
)

// CatalogCache is a read-through university.Repository. Redis failures fall
// back to the inner repository; the catalog stays readable without Redis.
// Repeated failures open a circuit breaker and Redis is skipped until it
// recovers. Unknown IDs are never cached.
type CatalogCache struct {
	inner    university.Repository
	cache    *Cache
	ttl      time.Duration
	breaker  *circuitbreaker.CircuitBreaker
	recorder LookupRecorder
	log      *logger.Logger
}

// CatalogOption configures a CatalogCache.
type CatalogOption func(*CatalogCache)

// WithLookupRecorder reports hits and misses.
func WithLookupRecorder(r LookupRecorder) CatalogOption {
	return func(c *CatalogCache) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithCacheLogger sets the logger used for degraded reads.
func WithCacheLogger(l *logger.Logger) CatalogOption {
	return func(c *CatalogCache) {
		if l != nil {
			c.log = l
		}
	}
}

// WithBreaker replaces the default cache circuit breaker.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) CatalogOption {
	return func(c *CatalogCache) {
		if cb != nil {
			c.breaker = cb
		}
	}
}

// NewCatalogCache wraps inner. A non-positive ttl uses DefaultCatalogTTL.
func NewCatalogCache(inner university.Repository, cache *Cache, ttl time.Duration, opts ...CatalogOption) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	c := &CatalogCache{
		inner:    inner,
		cache:    cache,
		ttl:      ttl,
		recorder: nopLookupRecorder{},
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("catalog_cache"))
	if c.breaker == nil {
		c.breaker = circuitbreaker.CacheBreaker("redis-catalog",
			circuitbreaker.WithIsFailure(isCacheFailure),
			circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
				c.log.Warn("cache circuit state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()))
			}))
	}
	return c
}

// isCacheFailure treats misses and bad payloads as healthy Redis replies.
func isCacheFailure(err error) bool {
	return !errors.Is(err, ErrCacheMiss) && !errors.Is(err, ErrCacheSerialization)
}

func (c *CatalogCache) get(ctx context.Context, k string, dest any) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Get(ctx, k, dest)
	})
}

func (c *CatalogCache) set(ctx context.Context, k string, v any) {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, k, v, c.ttl)
	})
	if err != nil && !circuitbreaker.IsRejected(err) {
		c.log.Warn("catalog cache write failed", logger.String("key", k), logger.Err(err))
	}
}

// lookupFailed logs a read error unless the breaker skipped Redis.
func (c *CatalogCache) lookupFailed(k string, err error) {
	if circuitbreaker.IsRejected(err) {
		return
	}
	c.log.Warn("catalog cache read failed", logger.String("key", k), logger.Err(err))
}

var _ university.Repository = (*CatalogCache)(nil)

// GetUniversity implements university.Repository.
func (c *CatalogCache) GetUniversity(ctx context.Context, id shared.UniversityID) (*university.University, error) {
	k := UniversityKey(id)

	var cached universityRecord
	err := c.get(ctx, k, &cached)
	c.recorder.CacheLookup(cacheUniversity, err == nil)
	switch {
	case err == nil:
		return cached.toDomain(), nil
	case !errors.Is(err, ErrCacheMiss):
		c.lookupFailed(k, err)
	}

	u, err := c.inner.GetUniversity(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, k, recordFrom(u))
	return u, nil
}

// ListUniversities implements university.Repository.
func (c *CatalogCache) ListUniversities(ctx context.Context, filter university.Filter) ([]*university.University, error) {
	k := ListKey(filter)

	var cached []universityRecord
	err := c.get(ctx, k, &cached)
	c.recorder.CacheLookup(cacheCatalog, err == nil)
	switch {
	case err == nil:
		out := make([]*university.University, len(cached))
		for i := range cached {
			out[i] = cached[i].toDomain()
		}
		return out, nil
	case !errors.Is(err, ErrCacheMiss):
		c.lookupFailed(k, err)
	}

	list, err := c.inner.ListUniversities(ctx, filter)
	if err != nil {
		return nil, err
	}
	records := make([]universityRecord, len(list))
	for i, u := range list {
		records[i] = recordFrom(u)
	}
	c.set(ctx, k, records)
	return list, nil
}

// Invalidate drops every cached catalog entry. Call after catalog writes.
// It bypasses the breaker: a skipped invalidation would serve stale data.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.cache.DeleteByPattern(ctx, PrefixCatalog+"*")
}

// UniversityKey is the cache key for one university.
func UniversityKey(id shared.UniversityID) string {
	return key(PrefixCatalog, "university", id.String())
}

// ListKey is the cache key for a filtered catalog listing. Country order in
// the filter does not matter.
func ListKey(filter university.Filter) string {
	if len(filter.Countries) == 0 {
		return key(PrefixCatalog, "list", "all")
	}
	codes := make([]string, len(filter.Countries))
	for i, c := range filter.Countries {
		codes[i] = string(c)
	}
	sort.Strings(codes)
	return key(PrefixCatalog, "list", strings.Join(codes, ","))
}

// universityRecord is the cached JSON shape.
type universityRecord struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Country             string   `json:"country"`
	AcceptanceRate      *float64 `json:"acceptance_rate,omitempty"`
	Ranking             *int     `json:"ranking,omitempty"`
	Tuition             int      `json:"tuition"`
	LanguageRequirement *float64 `json:"language_requirement,omitempty"`
}

func recordFrom(u *university.University) universityRecord {
	return universityRecord{
		ID:                  u.ID.String(),
		Name:                u.Name,
		Country:             string(u.Country),
		AcceptanceRate:      u.AcceptanceRate,
		Ranking:             u.Ranking,
		Tuition:             u.Tuition,
		LanguageRequirement: u.LanguageRequirement,
	}
}

func (r universityRecord) toDomain() *university.University {
	return &university.University{
		ID:                  shared.UniversityID(r.ID),
		Name:                r.Name,
		Country:             shared.CountryCode(r.Country),
		AcceptanceRate:      r.AcceptanceRate,
		Ranking:             r.Ranking,
		Tuition:             r.Tuition,
		LanguageRequirement: r.LanguageRequirement,
	}
}

package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/university"
	"github.com/abroad-hub/counsellor/internal/infrastructure/persistence/memory"
	"github.com/abroad-hub/counsellor/pkg/circuitbreaker"
	"github.com/abroad-hub/counsellor/pkg/logger/loggertest"
)

type countingRepo struct {
	university.Repository
	gets  int
	lists int
}

func (r *countingRepo) GetUniversity(ctx context.Context, id shared.UniversityID) (*university.University, error) {
	r.gets++
	return r.Repository.GetUniversity(ctx, id)
}

func (r *countingRepo) ListUniversities(ctx context.Context, f university.Filter) ([]*university.University, error) {
	r.lists++
	return r.Repository.ListUniversities(ctx, f)
}

type lookups struct {
	mu   sync.Mutex
	hits map[string]int
	miss map[string]int
}

func newLookups() *lookups {
	return &lookups{hits: map[string]int{}, miss: map[string]int{}}
}

func (l *lookups) CacheLookup(cache string, hit bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hit {
		l.hits[cache]++
	} else {
		l.miss[cache]++
	}
}

func setupCatalog(t *testing.T) (*CatalogCache, *countingRepo, *lookups, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memory.NewStore()
	rate, rank := 4.0, 1
	store.PutUniversity(university.University{ID: "mit", Name: "Massachusetts Institute of Technology", Country: "US", AcceptanceRate: &rate, Ranking: &rank, Tuition: 57000})
	store.PutUniversity(university.University{ID: "tum", Name: "Technical University of Munich", Country: "DE", Tuition: 0})

	inner := &countingRepo{Repository: store}
	rec := newLookups()
	c := NewCatalogCache(inner, NewCacheFromClient(client), time.Minute,
		WithLookupRecorder(rec), WithCacheLogger(loggertest.New(t)))
	return c, inner, rec, mr
}

func TestCatalogCache_GetUniversityReadThrough(t *testing.T) {
	c, inner, rec, mr := setupCatalog(t)
	ctx := context.Background()

	first, err := c.GetUniversity(ctx, "mit")
	require.NoError(t, err)
	second, err := c.GetUniversity(ctx, "mit")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, first, second)
	require.NotNil(t, second.Ranking)
	assert.Equal(t, 1, *second.Ranking)
	assert.Equal(t, 1, rec.hits[cacheUniversity])
	assert.Equal(t, 1, rec.miss[cacheUniversity])

	assert.True(t, mr.Exists(UniversityKey("mit")))
	assert.Equal(t, time.Minute, mr.TTL(UniversityKey("mit")))
}

func TestCatalogCache_NotFoundIsNotCached(t *testing.T) {
	c, inner, _, mr := setupCatalog(t)
	ctx := context.Background()

	_, err := c.GetUniversity(ctx, "nowhere")
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
	_, err = c.GetUniversity(ctx, "nowhere")
	require.Error(t, err)

	assert.Equal(t, 2, inner.gets)
	assert.False(t, mr.Exists(UniversityKey("nowhere")))
}

func TestCatalogCache_ListUniversities(t *testing.T) {
	c, inner, rec, _ := setupCatalog(t)
	ctx := context.Background()

	all, err := c.ListUniversities(ctx, university.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	again, err := c.ListUniversities(ctx, university.Filter{})
	require.NoError(t, err)
	assert.Equal(t, all, again)
	assert.Equal(t, 1, inner.lists)
	assert.Equal(t, 1, rec.hits[cacheCatalog])

	de, err := c.ListUniversities(ctx, university.Filter{Countries: []shared.CountryCode{"DE"}})
	require.NoError(t, err)
	require.Len(t, de, 1)
	assert.Equal(t, shared.UniversityID("tum"), de[0].ID)
	assert.Equal(t, 2, inner.lists)
}

func TestCatalogCache_Invalidate(t *testing.T) {
	c, inner, _, mr := setupCatalog(t)
	ctx := context.Background()

	_, err := c.GetUniversity(ctx, "mit")
	require.NoError(t, err)
	_, err = c.ListUniversities(ctx, university.Filter{})
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx))
	assert.Empty(t, mr.Keys())

	_, err = c.GetUniversity(ctx, "mit")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.gets)
}

func TestCatalogCache_RedisDownFallsBack(t *testing.T) {
	c, inner, rec, mr := setupCatalog(t)
	mr.Close()

	u, err := c.GetUniversity(context.Background(), "tum")
	require.NoError(t, err)
	assert.Equal(t, "Technical University of Munich", u.Name)
	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, 1, rec.miss[cacheUniversity])
}

func TestCatalogCache_BreakerOpensWhenRedisDown(t *testing.T) {
	c, inner, _, mr := setupCatalog(t)
	cb := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Hour))
	WithBreaker(cb)(c)
	mr.Close()

	// One failed read and one failed write trip the breaker.
	_, err := c.GetUniversity(context.Background(), "mit")
	require.NoError(t, err)
	assert.Equal(t, circuitbreaker.StateOpen, cb.State())

	// Later reads go straight to the inner repository.
	_, err = c.GetUniversity(context.Background(), "mit")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.gets)
}

func TestCatalogCache_MissesDoNotTripBreaker(t *testing.T) {
	c, _, _, _ := setupCatalog(t)
	cb := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(1), circuitbreaker.WithIsFailure(isCacheFailure))
	WithBreaker(cb)(c)

	for _, id := range []shared.UniversityID{"mit", "tum", "nowhere"} {
		_, _ = c.GetUniversity(context.Background(), id)
	}
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
}

func TestListKey_CountryOrderIndependent(t *testing.T) {
	a := ListKey(university.Filter{Countries: []shared.CountryCode{"US", "DE"}})
	b := ListKey(university.Filter{Countries: []shared.CountryCode{"DE", "US"}})
	assert.Equal(t, a, b)
	assert.Equal(t, "catalog:list:DE,US", a)
	assert.Equal(t, "catalog:list:all", ListKey(university.Filter{}))
}

func TestCache_Validation(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewCacheFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	assert.ErrorIs(t, cache.Set(ctx, "", 1, time.Second), ErrCacheKeyEmpty)
	assert.ErrorIs(t, cache.Set(ctx, "k", nil, time.Second), ErrCacheNilValue)
	assert.ErrorIs(t, cache.Set(ctx, "k", 1, -time.Second), ErrCacheInvalidTTL)

	var v int
	assert.ErrorIs(t, cache.Get(ctx, "missing", &v), ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "k", 42, 0))
	require.NoError(t, cache.Get(ctx, "k", &v))
	assert.Equal(t, 42, v)
}

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	cfg.URL = "redis://:secret@cache.internal:6380/2"
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, cfg.PoolSize, opts.PoolSize)
}

package main

import (
	"context"
	"fmt"

	"github.com/abroad-hub/counsellor/config"
	"github.com/abroad-hub/counsellor/internal/application/counsellor"
	"github.com/abroad-hub/counsellor/internal/domain/university"
	"github.com/abroad-hub/counsellor/internal/infrastructure/metrics"
	"github.com/abroad-hub/counsellor/internal/infrastructure/persistence/memory"
	"github.com/abroad-hub/counsellor/internal/infrastructure/persistence/postgres"
	"github.com/abroad-hub/counsellor/internal/infrastructure/persistence/redis"
	"github.com/abroad-hub/counsellor/internal/interface/http/handlers"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

// catalogWriter stores imported universities.
type catalogWriter interface {
	UpsertUniversity(ctx context.Context, u *university.University) error
}

// memoryCatalog adapts the memory store to catalogWriter.
type memoryCatalog struct{ store *memory.Store }

func (m memoryCatalog) UpsertUniversity(_ context.Context, u *university.University) error {
	m.store.PutUniversity(*u)
	return nil
}

// app holds the infrastructure opened for one command run.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics

	db     *postgres.Connection // nil for the memory driver
	mem    *memory.Store        // nil for the postgres driver
	cache  *redis.Cache         // nil when Redis is disabled or unreachable

	stores  counsellor.Stores
	catalog catalogWriter
	// invalidate drops cached catalog reads after an import.
	invalidate func(ctx context.Context) error

	health *handlers.CompositeHealthChecker
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(logger.Options{
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		Format:    cfg.Observability.LogFormat,
		AddCaller: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log.With(logger.String("service", cfg.App.Name)), nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	pg := postgres.DefaultConfig()
	pg.URL = cfg.Database.URL
	pg.MaxConns = int32(cfg.Database.MaxConns)
	pg.MinConns = int32(cfg.Database.MinConns)
	pg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pg.QueryTimeout = cfg.Database.QueryTimeout
	return postgres.NewConnection(ctx, pg)
}

// openApp connects storage and the optional catalog cache.
func openApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:        cfg,
		log:        log,
		metrics:    metrics.New(),
		health:     handlers.NewCompositeHealthChecker(cfg.App.Version),
		invalidate: func(context.Context) error { return nil },
	}

	var catalog university.Repository
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn("using the in-memory store; state is lost on restart")
		store := memory.NewStore()
		a.mem = store
		a.stores = counsellor.Stores{Users: store, Profiles: store, Ledger: store}
		a.catalog = memoryCatalog{store}
		catalog = store

	default:
		log.Info("connecting to database...")
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db
		a.health.AddCheck("postgres", handlers.PingCheck(db))

		repo := postgres.NewUniversityRepository(db)
		profiles := postgres.NewProfileRepository(db)
		a.stores = counsellor.Stores{Users: profiles, Profiles: profiles, Ledger: postgres.NewLedgerStore(db)}
		a.catalog = repo
		catalog = repo
		log.Info("database connection established")
	}

	a.stores.Universities = a.openCatalogCache(catalog)
	return a, nil
}

// openCatalogCache wraps the catalog in the Redis read-through cache. Redis is
// optional: a failed connection is logged and the catalog is served directly.
func (a *app) openCatalogCache(inner university.Repository) university.Repository {
	rc := a.cfg.Redis
	if rc.Disabled {
		return inner
	}
	cache, err := redis.NewCache(redis.Config{
		URL:          rc.URL,
		Host:         rc.Host,
		Port:         rc.Port,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		MaxRetries:   redis.DefaultConfig().MaxRetries,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	})
	if err != nil {
		a.log.Warn("failed to connect to Redis, catalog caching disabled", logger.Err(err))
		return inner
	}
	a.cache = cache
	a.health.AddCheck("redis", handlers.PingCheck(cache))

	cached := redis.NewCatalogCache(inner, cache, rc.CatalogTTL,
		redis.WithLookupRecorder(a.metrics),
		redis.WithCacheLogger(a.log))
	a.invalidate = cached.Invalidate
	a.log.Info("Redis catalog cache enabled", logger.Duration("ttl", rc.CatalogTTL))
	return cached
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("failed to close Redis", logger.Err(err))
		}
	}
	if a.db != nil {
		a.log.Info("closing database connection...")
		a.db.Close()
	}
	_ = a.log.Sync()
}

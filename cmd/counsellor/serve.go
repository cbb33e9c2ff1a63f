package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abroad-hub/counsellor/internal/application/counsellor"
	"github.com/abroad-hub/counsellor/internal/application/eventhandler"
	"github.com/abroad-hub/counsellor/internal/infrastructure/messaging"
	"github.com/abroad-hub/counsellor/internal/infrastructure/persistence/postgres"
	httpserver "github.com/abroad-hub/counsellor/internal/interface/http"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

type serveOptions struct {
	migrate      bool
	catalogFile  string
	fixturesFile string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending migrations before serving (postgres driver)")
	cmd.Flags().StringVar(&opts.catalogFile, "catalog", "", "import a university catalog JSON file before serving")
	cmd.Flags().StringVar(&opts.fixturesFile, "fixtures", "", "load users and profiles from a JSON file (memory driver only)")
	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	log.Info("starting counsellor",
		logger.String("env", string(a.cfg.App.Environment)),
		logger.String("version", a.cfg.App.Version),
		logger.String("driver", a.cfg.Database.Driver))

	// ─────────────────────────────────────────────────────────────────────────
	// 1. SCHEMA, CATALOG AND FIXTURES
	// ─────────────────────────────────────────────────────────────────────────
	if opts.migrate && a.db != nil {
		applied, err := postgres.NewMigrator(a.db).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed", logger.Int("applied", applied))
	}
	if opts.catalogFile != "" {
		n, err := importCatalog(ctx, a, opts.catalogFile)
		if err != nil {
			return err
		}
		log.Info("catalog imported", logger.Int("universities", n))
	}
	if opts.fixturesFile != "" {
		n, err := loadFixtures(a, opts.fixturesFile)
		if err != nil {
			return err
		}
		log.Info("fixtures loaded", logger.Int("users", n))
	} else if a.mem != nil {
		log.Warn("memory driver without --fixtures: no users exist, user routes return 404")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultConfig()
	busConfig.Logger = log
	busConfig.Recorder = a.metrics
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()
	if err := bus.SubscribeAll(messaging.AuditLogHandler(log)); err != nil {
		return fmt.Errorf("failed to subscribe audit log: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ENGINE
	// ─────────────────────────────────────────────────────────────────────────
	policy, err := a.cfg.Engine.Policy()
	if err != nil {
		return err
	}
	svc := counsellor.Wire(a.stores, counsellor.Options{
		DocumentPolicy: policy,
		Recommend:      a.cfg.Engine.RecommendOptions(),
		MaxAttempts:    a.cfg.Engine.LockMaxAttempts,
		Publisher:      bus,
		Recorder:       a.metrics,
		Logger:         log,
	})

	shortlistAdded := eventhandler.NewOnShortlistAddedHandler(svc.DocumentSyncer(),
		eventhandler.ShortlistAddedConfig{Policy: policy}, log)
	if err := shortlistAdded.Register(bus); err != nil {
		return fmt.Errorf("failed to register shortlist handler: %w", err)
	}
	log.Info("engine ready", logger.DocumentPolicy(string(policy)))

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Addr = a.cfg.HTTP.Addr
	httpConfig.ReadTimeout = a.cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = a.cfg.HTTP.WriteTimeout
	httpConfig.Debug = a.cfg.App.Debug
	httpConfig.MetricsPath = a.cfg.Observability.MetricsPath

	deps := httpserver.Dependencies{
		Counsellor: svc,
		Health:     a.health,
		Logger:     log,
	}
	if a.cfg.Observability.MetricsEnabled {
		deps.Metrics = a.metrics
		deps.MetricsHandler = a.metrics.Handler()
	}
	server := httpserver.NewServer(httpConfig, deps)
	errCh := server.StartAsync()

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", a.cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}
	log.Info("shutdown completed successfully")
	return nil
}

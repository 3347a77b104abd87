// Package app wires the console's components together: the backend client,
// local stores, the grouped-queue state, job polling, the checklist service
// and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mverde/consola/internal/backend"
	"github.com/mverde/consola/internal/cache"
	"github.com/mverde/consola/internal/checklist"
	"github.com/mverde/consola/internal/config"
	"github.com/mverde/consola/internal/grouping"
	"github.com/mverde/consola/internal/jobs"
	"github.com/mverde/consola/internal/metrics"
	"github.com/mverde/consola/internal/models"
	"github.com/mverde/consola/internal/server"
	"github.com/mverde/consola/internal/store"
	"github.com/mverde/consola/internal/template"
	"github.com/mverde/consola/internal/variation"
)

// App is the main application
type App struct {
	config     *config.Config
	logger     *slog.Logger
	db         *store.DB
	cache      *cache.BoltCache
	varier     variation.Varier
	jobs       *jobs.Manager
	invalidate *jobs.Debouncer
	apiServer  *server.Server
}

// New creates a new application
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metrics.SetGlobal(m)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	payloadCache, err := cache.NewBoltCache(cfg.Cache.Path, cfg.Cache.TTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open payload cache: %w", err)
	}

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)

	var varier variation.Varier = variation.NopVarier{}
	switch {
	case cfg.Variation.Enabled && cfg.Variation.APIKey != "":
		varier, err = variation.NewGeminiVarier(ctx, cfg.Variation.APIKey, cfg.Variation.Model)
		if err != nil {
			payloadCache.Close()
			db.Close()
			return nil, fmt.Errorf("failed to create variation client: %w", err)
		}
		logger.Info("message variation enabled", "model", cfg.Variation.Model)
	case cfg.Variation.Enabled:
		varier = variation.NewRemoteVarier(client)
		logger.Info("message variation delegated to backend")
	}

	engine := template.NewEngine()
	loader := grouping.NewLoader(client, payloadCache, logger)
	jobLog := store.NewJobRunRepository(db.DB)

	manager := jobs.NewManager(client, jobs.Config{
		Interval:    cfg.Jobs.PollInterval,
		MaxAttempts: cfg.Jobs.MaxAttempts,
	}, jobLog, logger)

	// A finished queue rebuild changes what is pending everywhere. Jobs
	// finishing back to back trigger one invalidation, not three.
	invalidate := jobs.NewDebouncer(cfg.Jobs.DebounceInterval)
	for _, kind := range []string{models.KindQueueRefresh, models.KindEmailQueue, models.KindWhatsAppQueue} {
		manager.OnTerminal(kind, func(st *models.JobStatus) {
			if st.Status == models.JobCompleted {
				invalidate.Trigger(func() {
					if err := loader.InvalidateAll(); err != nil {
						logger.Warn("failed to invalidate payload cache", "error", err)
					}
				})
			}
		})
	}

	deps := server.Deps{
		Loader:     loader,
		Paginator:  grouping.NewPaginator(store.NewPrefRepository(db.DB)),
		Expansion:  grouping.NewExpansion(),
		Engine:     engine,
		Previewer:  variation.NewPreviewer(engine, varier, logger),
		Dispatcher: variation.NewDispatcher(client, logger),
		Jobs:       manager,
		Checklist:  checklist.NewService(client, logger),
		Counts:     client,
		Snoozer:    client,
		Snoozes:    store.NewSnoozeRepository(db.DB),
		JobLog:     jobLog,
		Metrics:    m,
	}

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		cache:      payloadCache,
		varier:     varier,
		jobs:       manager,
		invalidate: invalidate,
		apiServer:  server.NewServer(deps, cfg, logger),
	}, nil
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting consola",
		"api_addr", a.config.Server.ListenAddr,
		"backend", a.config.Backend.BaseURL,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.shutdown()
		return err
	}

	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown failed", "error", err)
	}

	a.jobs.Shutdown()
	a.invalidate.Stop()

	if err := a.varier.Close(); err != nil {
		a.logger.Error("variation client close failed", "error", err)
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("payload cache close failed", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("database close failed", "error", err)
	}

	a.logger.Info("consola stopped")
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

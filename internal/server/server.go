// Package server exposes the console's JSON API: the outreach queue views,
// template and variation previews, batch dispatch, job control and the
// delivery checklist.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mverde/consola/internal/checklist"
	"github.com/mverde/consola/internal/config"
	"github.com/mverde/consola/internal/grouping"
	"github.com/mverde/consola/internal/jobs"
	"github.com/mverde/consola/internal/metrics"
	"github.com/mverde/consola/internal/store"
	"github.com/mverde/consola/internal/template"
	"github.com/mverde/consola/internal/variation"
)

// Deps are the wired components the server exposes over HTTP.
type Deps struct {
	Loader     *grouping.Loader
	Paginator  *grouping.Paginator
	Expansion  *grouping.Expansion
	Engine     *template.Engine
	Previewer  *variation.Previewer
	Dispatcher *variation.Dispatcher
	Jobs       *jobs.Manager
	Checklist  *checklist.Service
	Counts     CountsFetcher
	Snoozer    Snoozer
	Snoozes    *store.SnoozeRepository
	JobLog     *store.JobRunRepository
	Metrics    *metrics.Metrics
}

// Server is the console HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	config     *config.Config
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a new console server
func NewServer(deps Deps, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		deps:      deps,
		config:    cfg,
		logger:    logger.With("component", "server"),
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(chimw.Recoverer)
	s.router.Use(metrics.HTTPMiddleware)

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	if s.config.Metrics.Enabled && s.deps.Metrics != nil {
		s.router.Get(s.config.Metrics.Path, promhttp.HandlerFor(
			s.deps.Metrics.Registry(),
			promhttp.HandlerOpts{},
		).ServeHTTP)
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		// Rule catalog and queue views
		r.Get("/stages", s.handleStages)
		r.Get("/counts", s.handleCounts)
		r.Post("/rules/{ruleID}/toggle", s.handleToggleRule)
		r.Get("/rules/{ruleID}/view", s.handleRuleView)
		r.Post("/rules/{ruleID}/refresh", s.handleRefreshRule)
		r.Post("/groups/toggle", s.handleToggleGroup)
		r.Post("/subgroups/toggle", s.handleToggleSubgroup)
		r.Post("/pages", s.handleSetPage)
		r.Post("/page-size", s.handleSetPageSize)

		// Templates, variation, dispatch
		r.Post("/preview", s.handlePreview)
		r.Post("/variation/preview", s.handleVariationPreview)
		r.Post("/dispatch", s.handleDispatch)
		r.Post("/snooze", s.handleSnooze)

		// Jobs
		r.Post("/jobs/{kind}", s.handleStartJob)
		r.Get("/jobs/{kind}", s.handleJobStatus)
		r.Delete("/jobs/{kind}", s.handleCancelJob)
		r.Get("/jobs", s.handleJobHistory)

		// Delivery checklist
		r.Get("/cases", s.handleCases)
		r.Get("/cases/status", s.handleCaseStatuses)
		r.Get("/cases/{caseID}/grid", s.handleCaseGrid)
		r.Post("/cases/{caseID}/cells", s.handleToggleCell)
		r.Post("/cases/{caseID}/contacts/{contactID}/profile", s.handleToggleProfile)
		r.Post("/cases/{caseID}/columns", s.handleCreateColumn)
		r.Patch("/cases/{caseID}/columns/{columnID}", s.handleUpdateColumn)
		r.Delete("/cases/{caseID}/columns/{columnID}", s.handleDeleteColumn)
		r.Post("/cases/{caseID}/columns/{columnID}/move", s.handleMoveColumn)
		r.Get("/traffic-light", s.handleTrafficLight)
	})
}

// Router returns the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddr,
		Handler:        s.router,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
	}

	s.logger.Info("starting console API server", "addr", s.config.Server.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down console API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

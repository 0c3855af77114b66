// Package app wires configuration into a ready-to-serve analyzer shared by
// the API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dvloznov/ledger/internal/analytics"
	"github.com/dvloznov/ledger/internal/api/handlers"
	"github.com/dvloznov/ledger/internal/api/middleware"
	"github.com/dvloznov/ledger/internal/config"
	"github.com/dvloznov/ledger/internal/domain"
	"github.com/dvloznov/ledger/internal/gemini"
	"github.com/dvloznov/ledger/internal/jobs"
	"github.com/dvloznov/ledger/internal/jobs/inmemory"
	"github.com/dvloznov/ledger/internal/metrics"
	"github.com/dvloznov/ledger/internal/pipeline"
	"github.com/dvloznov/ledger/internal/render"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Options adjust wiring beyond what Config expresses.
type Options struct {
	// ForceMock uses the fallback stages even when a credential exists.
	ForceMock bool
	// Rasterizer replaces the PDFium renderer when set.
	Rasterizer pipeline.Rasterizer
}

// App owns the long-lived components.
type App struct {
	cfg      config.Config
	log      zerolog.Logger
	analyzer *pipeline.Analyzer
	queue    *inmemory.Queue
	metrics  *metrics.Metrics
	closers  []func() error
}

// New builds every component and starts the worker pool.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	a := &App{cfg: cfg, log: log, metrics: metrics.New()}

	rasterizer := opts.Rasterizer
	if rasterizer == nil {
		r, err := render.New(render.Config{Instances: cfg.Server.MaxConcurrentAnalyses})
		if err != nil {
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.closers = append(a.closers, r.Close)
		rasterizer = r
	}

	deps := pipeline.Deps{Rasterizer: rasterizer, Recorder: a.metrics}
	if cfg.AIEnabled() && !opts.ForceMock {
		client, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("app.New: %w", err)
		}
		deps.Extractor = gemini.NewExtractor(client)
		deps.Categorizer = gemini.NewCategorizer(client)
	} else {
		log.Warn().Msg("No model credential configured - mock extraction and categorization enabled")
	}

	analyticsOpts := analytics.DefaultOptions()
	analyticsOpts.SafetyBufferPct = cfg.Analysis.SafetyBufferPct

	analyzer, err := pipeline.NewAnalyzer(pipeline.Options{
		MaxPDFBytes:  cfg.Analysis.MaxPDFBytes(),
		DPI:          cfg.Analysis.ImageDPI,
		StageTimeout: cfg.Analysis.StageTimeout,
		Analytics:    analyticsOpts,
	}, deps)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("app.New: %w", err)
	}
	a.analyzer = analyzer

	workers := cfg.Server.MaxConcurrentAnalyses
	a.queue = inmemory.NewQueue(workers, workers*2)
	if err := a.queue.Start(context.WithoutCancel(ctx), a.handleJob); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("app.New: start queue: %w", err)
	}

	return a, nil
}

func (a *App) handleJob(ctx context.Context, job *jobs.AnalyzeJob) (domain.AnalysisResult, error) {
	return a.analyzer.Analyze(ctx, job.Filename, job.PDF)
}

// Analyze runs one statement through the worker pool.
func (a *App) Analyze(ctx context.Context, filename string, pdf []byte) (domain.AnalysisResult, error) {
	return a.queue.Run(ctx, &jobs.AnalyzeJob{Filename: filename, PDF: pdf})
}

// AIEnabled reports whether the live model stages are in use.
func (a *App) AIEnabled() bool {
	return !a.analyzer.MockMode()
}

// Health returns the document served by GET /api/health.
func (a *App) Health() handlers.Health {
	return handlers.NewHealth(a.cfg.AIEnabled(), a.cfg.Gemini.Model, config.Version)
}

// Router builds the HTTP routes and middleware stack.
func (a *App) Router() http.Handler {
	health := a.Health()
	healthHandler := handlers.NewHealthHandler(health.AIEnabled, health.Model, health.Version)
	analyzeHandler := handlers.NewAnalyzeHandler(a.queue, a.cfg.Analysis.MaxPDFBytes())

	r := chi.NewRouter()
	r.Use(
		middleware.Recovery(a.log),
		middleware.RequestID,
		middleware.Logger(a.log),
		middleware.CORS(a.cfg.Server.AllowedOrigins),
	)

	r.Get("/api/health", healthHandler.Health)
	r.With(middleware.RateLimit(a.cfg.Server.RateLimitPerSecond, a.cfg.Server.RateLimitBurst)).
		Post("/api/analyze", analyzeHandler.Analyze)
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	return r
}

// Close stops the worker pool, waiting for in-flight jobs until ctx is
// done, then releases the renderer.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop queue: %w", err))
		}
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

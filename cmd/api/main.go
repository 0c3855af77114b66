package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/ledger/internal/app"
	"github.com/dvloznov/ledger/internal/config"
	"github.com/dvloznov/ledger/internal/logger"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	port := flag.String("port", cfg.Server.Port, "HTTP server port (or set PORT env)")
	mock := flag.Bool("mock", false, "Use mock extraction and categorization even when GEMINI_API_KEY is set")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log, app.Options{ForceMock: *mock})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}

	// Two model stages plus rendering and the upload itself.
	writeTimeout := 2*cfg.Analysis.StageTimeout + time.Minute

	server := &http.Server{
		Addr:              ":" + *port,
		Handler:           application.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("port", *port).
			Bool("ai_enabled", application.AIEnabled()).
			Str("model", cfg.Gemini.Model).
			Str("version", config.Version).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}

		// Stop job queue and wait for in-flight analyses
		if err := application.Close(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping application")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}

	log.Info().Msg("Server exited")
}

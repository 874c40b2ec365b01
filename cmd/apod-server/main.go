package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfryer1193/apodcache/apod/application"
	"github.com/dfryer1193/apodcache/apod/domain"
	"github.com/dfryer1193/apodcache/apod/persistence"
	"github.com/dfryer1193/apodcache/internal/middleware"
	"github.com/dfryer1193/apodcache/internal/rest"
	"github.com/dfryer1193/apodcache/shared/config"
	"github.com/dfryer1193/apodcache/shared/db/sqlite"
	"github.com/dfryer1193/apodcache/shared/logging"
	"github.com/dfryer1193/apodcache/shared/nasa"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
	log.Info().Msg("Server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database := sqlite.NewSQLiteDB(&cfg.SQLite)
	if err := database.Connect(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	cache, err := persistence.NewFileCache(cfg.ImageDir)
	if err != nil {
		return err
	}
	repo := persistence.NewImageRepository(database.DB())

	client, err := nasa.NewClient(&cfg.Nasa, nil)
	if err != nil {
		return err
	}

	validator := domain.NewValidator()
	validator.Epoch = cfg.CatalogEpoch

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	fetchService := application.NewFetchService(client, client, cache, repo, validator, application.NewFetchMetrics(reg))

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.CustomRecovery(middleware.HandlePanics()))

	rest.NewApi(router, rest.Dependencies{
		Fetches: fetchService,
		Library: application.NewLibrary(repo, cache),
		Ping:    database.DB().PingContext,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Int("port", cfg.Port).Str("imageDir", cfg.ImageDir).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		// Cancel running fetches first so their event streams end
		if err := fetchService.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to gracefully close fetch service")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

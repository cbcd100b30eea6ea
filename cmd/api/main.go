package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/exportflow/internal/api"
	"github.com/andresuchdata/exportflow/internal/cache"
	"github.com/andresuchdata/exportflow/internal/config"
	"github.com/andresuchdata/exportflow/internal/repository"
	"github.com/andresuchdata/exportflow/internal/repository/postgres"
	"github.com/andresuchdata/exportflow/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	logger.SetFormat(cfg.Log.Format, os.Stdout)
	logger.SetLevel(cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	var runs repository.RunRepository
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(ctx, &cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		runs = postgres.NewRunRepository(db)
	} else {
		logger.Log.Info().Str("archive_root", cfg.Pipeline.ArchiveRoot).Msg("Run history database disabled, serving run manifests")
		runs = repository.NewManifestRunRepository(cfg.Pipeline.ArchiveRoot)
	}

	runCache, err := cache.NewRunCache(ctx, cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, last-run cache disabled")
		runCache = cache.NewNoopRunCache()
	}
	defer runCache.Close()

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{Runs: runs, RunCache: runCache}, cfg.Server.AllowedOrigins, logger.Log)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

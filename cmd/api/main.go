// Command api serves saved keeper-league analysis runs.
//
// Usage:
//
//	keeper-api
//	API_PORT=8080 keeper-api

// @title Keeper Analytics API
// @version 1.0.0
// @description Read API over saved keeper-league analysis runs. Output tables are JSON passthrough from Postgres.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name albapepper
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/albapepper/keeper-analytics/docs" // swagger docs
	"github.com/albapepper/keeper-analytics/internal/api"
	"github.com/albapepper/keeper-analytics/internal/api/handler"
	"github.com/albapepper/keeper-analytics/internal/cache"
	"github.com/albapepper/keeper-analytics/internal/config"
	"github.com/albapepper/keeper-analytics/internal/db"
	"github.com/albapepper/keeper-analytics/internal/listener"
	"github.com/albapepper/keeper-analytics/internal/maintenance"
	"github.com/albapepper/keeper-analytics/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	cfg := config.Load()
	if err := cfg.RequireDatabase(); err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	runs := store.New(pool.Pool, logger)

	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled, "ttl", cfg.CacheTTL)

	// Drop cached run listings whenever a run is saved
	go listener.Start(ctx, cfg.DatabaseURL, appCache, handler.RunsPrefix, logger)

	// Retention and cache eviction
	go maintenance.Start(ctx, runs, appCache, maintenance.FromConfig(cfg), logger)

	router := api.NewRouter(runs, appCache, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting Keeper Analytics API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dealsentry/dealsentry/internal/config"
	"github.com/dealsentry/dealsentry/internal/di"
	"github.com/dealsentry/dealsentry/internal/server"
	"github.com/dealsentry/dealsentry/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting DealSentry")

	ctx := context.Background()
	container, err := di.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build application container")
	}
	defer container.Close()

	if err := container.Maintenance.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start maintenance jobs")
	}
	defer container.Maintenance.Stop()

	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DB:      container.DB,
		Config:  cfg,
		DevMode: cfg.DevMode,
		Modules: container.Modules,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// Package main provides the read API server entry point for the burn
// tracker.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/burn-tracker/internal/api"
	"github.com/burn-tracker/internal/config"
	"github.com/burn-tracker/internal/logging"
	"github.com/burn-tracker/internal/service"
	"github.com/burn-tracker/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	// The API degrades gracefully without Redis; every read just goes to
	// Postgres.
	var cache api.CacheInterface
	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, serving without read cache")
	} else {
		defer redis.Close()
		cache = storage.NewCacheService(redis, cfg.Cache.TTL)
	}

	burnRepo := storage.NewBurnRepository(postgres)
	dailyRepo := storage.NewDailyBurnRepository(postgres)
	rollup := service.NewRollupService(burnRepo, dailyRepo, cfg.Tracking.StartDate)

	serverConfig := &api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	server := api.NewServer(serverConfig, burnRepo, rollup, cache)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/server"
)

func main() {
	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.Info().Str("environment", string(config.GetEnvironment())).Msg("Configuration loaded")

	db, err := database.New(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if cfg.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			logging.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	// Redis backs token revocation and rate limiting; run without it if unavailable
	var redisClient *redis.Client
	if database.RedisConfigured(cfg) {
		redisClient, err = database.NewRedisClient(cfg)
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to connect to Redis")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	ctx := context.Background()
	srv, err := server.New(ctx, cfg, db, redisClient)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create server")
	}

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logging.Fatal().Err(err).Msg("Server error")
		}
	case sig := <-quit:
		logging.Info().Str("signal", sig.String()).Msg("Received signal")
	}

	logging.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Server shutdown error")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logging.Info().Msg("Server stopped")
}

// cmd/server/main.go
// This is the main entry point for the competition state server.
// It evaluates the compstate directory and serves the result.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"compcore/internal/config"
	"compcore/internal/database"
	"compcore/internal/models"
	"compcore/internal/server"
	"compcore/internal/services"

	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration from environment variables and config files
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Error("Failed to load configuration")
		os.Exit(models.ExitSchema)
	}

	// Set up structured logging based on environment
	logger := setupLogger(cfg)

	// Initialize the cache backend when enabled
	var db *database.Connections
	if cfg.Features.EnableCache {
		db, err = initializeCache(cfg, logger)
		if err != nil {
			logger.WithError(err).Warn("Cache unavailable, continuing without it")
			db = nil
		} else {
			defer db.Close()
		}
	}

	// Evaluate the compstate and wire the service container. Evaluation
	// failures map onto the reserved exit codes.
	svc, err := services.NewContainer(db, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to evaluate compstate")
		os.Exit(models.ExitCode(err))
	}

	// Create and configure the HTTP server with all dependencies
	srv := server.New(cfg, svc, logger)

	// Start server in a goroutine to allow for graceful shutdown
	go func() {
		logger.WithFields(logrus.Fields{
			"port":        cfg.Server.Port,
			"environment": cfg.Environment,
			"compstate":   cfg.Compstate.Dir,
		}).Info("Starting server")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	gracefulShutdown(srv, logger)
}

// initializeCache sets up the cache connection with a health check
func initializeCache(cfg *config.Config, logger *logrus.Logger) (*database.Connections, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return database.Initialize(ctx, database.Config{
		Redis: database.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
	}, logger)
}

// setupLogger configures structured logging based on the environment
func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(srv *server.Server, logger *logrus.Logger) {
	quit := make(chan os.Signal, 1)
	// Listen for interrupt signals
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

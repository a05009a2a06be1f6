package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/ossadapter/internal/api"
	"github.com/timmy/ossadapter/internal/api/handler"
	"github.com/timmy/ossadapter/internal/api/middleware"
	"github.com/timmy/ossadapter/internal/config"
	"github.com/timmy/ossadapter/internal/logger"
	"github.com/timmy/ossadapter/internal/repository"
	"github.com/timmy/ossadapter/internal/service"
	"github.com/timmy/ossadapter/pkg/ossadapter"
)

func main() {
	// Initialize logger
	log := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Fatal("Failed to get database handle")
	}
	defer sqlDB.Close()

	// Initialize upload adapter (OSS, S3, R2, MinIO)
	adapter, err := ossadapter.New(cfg.AdapterConfig())
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage adapter")
	}

	fetcher := service.NewRemoteFetcher(&service.FetchConfig{
		Timeout:   cfg.Fetch.Timeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,

		AllowPrivateNetworks: cfg.Fetch.AllowPrivateNetworks,
	})
	fileService := service.NewFileService(
		adapter,
		repository.NewFileRepository(db),
		fetcher,
		&service.FileServiceConfig{MaxBytes: cfg.Upload.MaxBytes},
	)

	router := api.SetupRouter(fileService, log, api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		HealthChecks: map[string]handler.HealthCheck{
			"database": sqlDB.PingContext,
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logger.Fields{
			"port":             cfg.Server.Port,
			"mode":             cfg.Server.Mode,
			logger.FieldBucket: adapter.Bucket(),
			"folder":           adapter.Folder(),
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}

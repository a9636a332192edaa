package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/beauty-engine/backend/internal/api"
	"github.com/beauty-engine/backend/internal/config"
	"github.com/beauty-engine/backend/internal/engine"
	"github.com/beauty-engine/backend/internal/images"
	"github.com/beauty-engine/backend/internal/storage"
)

func main() {
	// 1. Config
	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.Fatalf("Failed to read .env: %v", err)
	}
	cfg := config.Load()

	// Setup Logging
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	entry := logger.WithField("service", "recommend-api")

	entry.Info("Starting Beauty Recommendation API Service")

	if err := cfg.ApplyPreset(); err != nil {
		entry.Fatalf("Failed to apply scoring preset: %v", err)
	}

	// 2. Storage
	store, err := storage.NewFileStorage(cfg.Storage.ExportDir)
	if err != nil {
		entry.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// 3. Images
	imageMap, err := images.LoadMapFile(cfg.Images.MapPath)
	if err != nil {
		entry.WithError(err).Warn("Image map unusable, falling back to dataset URLs")
		imageMap = images.NewMap()
	}
	var fetcher *images.Fetcher
	if cfg.Images.EmbedDataURI {
		fetcher = images.NewFetcher(cfg.Images, entry.WithField("component", "images"))
	}
	resolver := images.NewResolver(imageMap, fetcher, entry.WithField("component", "images"))

	// 4. Engine
	eng := engine.NewEngine(cfg, entry.WithField("component", "engine"), store, resolver)
	if _, err := eng.Reload(); err != nil {
		entry.WithError(err).Warn("Catalog not loaded; POST /api/v1/catalog/reload once it is available")
	}

	// 5. API Server
	server := api.NewServer(eng, entry)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			entry.Fatal(err)
		}
	case sig := <-sigCh:
		entry.Infof("Received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			entry.WithError(err).Error("Graceful shutdown failed")
		}
	}
}

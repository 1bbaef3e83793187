package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/leca/doorguardian/internal/config"
	"github.com/leca/doorguardian/internal/database"
	"github.com/leca/doorguardian/internal/router"
	"github.com/leca/doorguardian/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Best-effort: a missing .env is fine.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var blobs storage.BlobStore
	switch cfg.StorageBackend {
	case "s3":
		blobs, err = storage.NewS3(context.Background(), cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			slog.Error("failed to initialise s3 storage", "error", err)
			os.Exit(1)
		}
	default:
		blobs = storage.NewFileSystem(cfg.StoragePath, cfg.BaseURL)
	}

	srv := router.New(db, blobs, cfg)

	slog.Info("starting server", "addr", cfg.ListenAddr, "storage", cfg.StorageBackend)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

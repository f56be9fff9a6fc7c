package main

import (
	"context"
	"log"

	"github.com/attestor-dev/attestor/db"
	"github.com/attestor-dev/attestor/internal/auth"
	"github.com/attestor-dev/attestor/internal/config"
	"github.com/attestor-dev/attestor/internal/handlers"
	"github.com/attestor-dev/attestor/internal/router"
	"github.com/attestor-dev/attestor/internal/storage"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, relying on the environment: %v", err)
	}

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	gdb, err := db.Connect(cfg.DatabaseURL)

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	var store storage.BlobStore

	switch cfg.StorageBackend {
	case "s3":
		store, err = storage.NewS3Store(context.Background(), cfg.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
	default:
		store = storage.NewLocalStore(cfg.UploadDir)
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret)

	if err != nil {
		log.Fatalf("Failed to initialize token manager: %v", err)
	}

	h := handlers.New(gdb, store, tokens, cfg, &handlers.GraphProfileFetcher{})

	r := router.New(h)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

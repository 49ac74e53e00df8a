package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/meech-ward/qr-full-stack/internal/config"
	"github.com/meech-ward/qr-full-stack/internal/logger"
	"github.com/meech-ward/qr-full-stack/pkg/database"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	l, err := logger.New(cfg.LogEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer l.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database, l)
	if err != nil {
		l.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(db); err != nil {
		l.Fatal("failed to migrate database", zap.Error(err))
	}
	l.Info("migrations applied", zap.String("driver", cfg.Database.Driver))
}

package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/meech-ward/qr-full-stack/internal/config"
	"github.com/meech-ward/qr-full-stack/internal/handler"
	"github.com/meech-ward/qr-full-stack/internal/logger"
	"github.com/meech-ward/qr-full-stack/internal/repository"
	"github.com/meech-ward/qr-full-stack/internal/service"
	"github.com/meech-ward/qr-full-stack/pkg/compositor"
	"github.com/meech-ward/qr-full-stack/pkg/database"
	"github.com/meech-ward/qr-full-stack/pkg/qrcode"
	"github.com/meech-ward/qr-full-stack/pkg/storage"
	"github.com/meech-ward/qr-full-stack/pkg/utils"
	"github.com/meech-ward/qr-full-stack/pkg/workqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is everything main needs to run and later shut down.
type App struct {
	Fiber  *fiber.App
	Queue  *workqueue.Queue
	DB     *gorm.DB
	Logger *zap.Logger
}

func newApp(f *fiber.App, q *workqueue.Queue, db *gorm.DB, l *zap.Logger) *App {
	return &App{Fiber: f, Queue: q, DB: db, Logger: l}
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.LogEnv, cfg.LogLevel)
}

func provideDB(ctx context.Context, cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	db, err := database.Open(ctx, cfg.Database, l)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// provideSinks stores to S3 when BUCKET_NAME is set and to UPLOADS_DIR
// otherwise.
func provideSinks(ctx context.Context, cfg *config.Config, l *zap.Logger) (service.Sinks, error) {
	sinks := service.Sinks{Preview: storage.NewDataURLSink(), SignedURLTTL: cfg.Bucket.SignedURLTTL}
	if !cfg.Bucket.Enabled() {
		local := storage.NewLocalSink(cfg.UploadsDir, "/api/uploads")
		l.Info("storing images locally", zap.String("dir", local.Dir()))
		sinks.Persistent = local
		return sinks, nil
	}

	s3Sink, err := storage.NewS3Sink(ctx, storage.S3Options{
		Bucket:          cfg.Bucket.Name,
		Region:          cfg.Bucket.Region,
		Endpoint:        cfg.Bucket.Endpoint,
		PublicURL:       cfg.Bucket.PublicURL,
		AccessKeyID:     cfg.Bucket.AccessKeyID,
		SecretAccessKey: cfg.Bucket.SecretAccessKey,
	}, l)
	if err != nil {
		return service.Sinks{}, err
	}
	l.Info("storing images in bucket", zap.String("bucket", cfg.Bucket.Name), zap.String("region", cfg.Bucket.Region))
	sinks.Persistent = s3Sink
	return sinks, nil
}

func provideCompositor(cfg *config.Config, l *zap.Logger) (*compositor.Compositor, error) {
	format, err := compositor.ParseFormat(cfg.Composite.Format)
	if err != nil {
		return nil, err
	}
	return compositor.New(compositor.Options{
		Quality:   cfg.Composite.Quality,
		Format:    format,
		MaxPixels: cfg.Composite.MaxPixels,
	}, l), nil
}

// provideQueue treats QUEUE_DELAY=0 as "no pause"; the default already comes
// from config.
func provideQueue(cfg *config.Config, l *zap.Logger) *workqueue.Queue {
	delay := cfg.Queue.Delay
	if delay <= 0 {
		delay = -1
	}
	return workqueue.New(workqueue.Options{
		Concurrency: cfg.Queue.Concurrency,
		Delay:       delay,
	}, l.Named("queue"))
}

func provideEncoder(cfg *config.Config) *qrcode.Encoder {
	return qrcode.NewEncoder(qrcode.Highest, cfg.Composite.QRScale)
}

func provideCompositeService(
	cfg *config.Config,
	c *compositor.Compositor,
	q *workqueue.Queue,
	e *qrcode.Encoder,
	codes *repository.QRCodeRepository,
	images *repository.QRImageRepository,
	sinks service.Sinks,
	l *zap.Logger,
) *service.CompositeService {
	return service.NewCompositeService(c, q, e, codes, images, sinks, cfg.Composite.Padding, l)
}

func provideQRHandler(
	cfg *config.Config,
	qrService *service.QRService,
	compositeService *service.CompositeService,
	v *utils.Validator,
	l *zap.Logger,
) *handler.QRHandler {
	return handler.NewQRHandler(qrService, compositeService, v, int64(cfg.MaxUploadSize), l)
}

// Package server assembles the Fiber application.
package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/meech-ward/qr-full-stack/internal/config"
	"github.com/meech-ward/qr-full-stack/internal/handler"
	"github.com/meech-ward/qr-full-stack/internal/middleware"
	"github.com/meech-ward/qr-full-stack/internal/models"
	"go.uber.org/zap"
)

const multipartOverhead = 1 << 20

func New(
	cfg *config.Config,
	logger *zap.Logger,
	healthHandler *handler.HealthHandler,
	qrHandler *handler.QRHandler,
	shortURLHandler *handler.ShortURLHandler,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "qr-full-stack",
		// Two images plus form fields.
		BodyLimit:             2*cfg.MaxUploadSize + multipartOverhead,
		ReadTimeout:           30 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.LogEnv != "prod"}))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.RequestLogger(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE",
	}))

	app.Get("/health", healthHandler.Health)
	app.Get("/s/:id", shortURLHandler.Resolve)

	api := app.Group("/api")
	api.Static("/uploads", cfg.UploadsDir)

	qr := api.Group("/qr")
	qr.Get("/", qrHandler.List)
	qr.Get("/:id", qrHandler.Get)
	qr.Delete("/:id", middleware.AdminAuth(cfg.JWTSecret, logger), qrHandler.Delete)

	// Writes are rate limited per client because each one queues image work.
	writes := []fiber.Handler{}
	if cfg.RateLimitMax > 0 {
		writes = append(writes, limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: cfg.RateLimitWindow,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse("Too many requests"))
			},
		}))
	}
	qr.Post("/short-url", append(writes, qrHandler.CreateShortURL)...)
	qr.Post("/", append(writes, qrHandler.Create)...)

	return app
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		msg := "internal server error"
		if code < fiber.StatusInternalServerError {
			msg = err.Error()
		} else {
			logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(models.ErrorResponse(msg))
	}
}

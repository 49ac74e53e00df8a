//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/meech-ward/qr-full-stack/internal/config"
	"github.com/meech-ward/qr-full-stack/internal/handler"
	"github.com/meech-ward/qr-full-stack/internal/repository"
	"github.com/meech-ward/qr-full-stack/internal/server"
	"github.com/meech-ward/qr-full-stack/internal/service"
	"github.com/meech-ward/qr-full-stack/pkg/utils"
)

func InitializeApp(ctx context.Context, cfg *config.Config) (*App, error) {
	wire.Build(
		provideLogger,
		provideDB,

		// Repositories
		repository.NewQRCodeRepository,
		repository.NewQRImageRepository,
		repository.NewQRUseRepository,

		// Image pipeline
		provideSinks,
		provideCompositor,
		provideQueue,
		provideEncoder,

		// Services
		service.NewQRService,
		provideCompositeService,

		// Validator
		utils.NewValidator,

		// Handlers
		handler.NewHealthHandler,
		provideQRHandler,
		handler.NewShortURLHandler,

		// App
		server.New,
		newApp,
	)
	return nil, nil
}

//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"jan-server/services/media-storage/internal/config"
	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/domain/transcode"
	"jan-server/services/media-storage/internal/infrastructure/auth"
	"jan-server/services/media-storage/internal/infrastructure/database/transaction"
	"jan-server/services/media-storage/internal/infrastructure/logger"
	repo "jan-server/services/media-storage/internal/infrastructure/repository/media"
	"jan-server/services/media-storage/internal/interfaces/httpserver"
	"jan-server/services/media-storage/internal/interfaces/httpserver/handlers"
)

var repositorySet = wire.NewSet(
	transaction.NewDatabase,
	wire.Bind(new(domain.Transactor), new(*transaction.Database)),
	repo.NewImageRepository,
	wire.Bind(new(domain.ImageRepository), new(*repo.ImageRepository)),
	repo.NewAudioRepository,
	wire.Bind(new(domain.AudioRepository), new(*repo.AudioRepository)),
	repo.NewDownloadRepository,
	wire.Bind(new(domain.DownloadRepository), new(*repo.DownloadRepository)),
	repo.NewReconciliationRepository,
	wire.Bind(new(domain.ReconciliationRepository), new(*repo.ReconciliationRepository)),
)

var mediaSet = wire.NewSet(
	provideStorage,
	provideRedis,
	provideLocker,
	transcode.NewImageTranscoder,
	domain.NewService,
	domain.NewStreamService,
	domain.NewGalleryService,
	domain.NewReconcilerConfig,
	domain.NewReconciler,
)

// BuildApplication assembles the media storage service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		auth.NewValidator,
		newDatabaseConfig,
		newGormDB,
		repositorySet,
		mediaSet,
		provideHandlerServices,
		handlers.NewProvider,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

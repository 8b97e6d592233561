package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/domain/transcode"
	"jan-server/services/media-storage/internal/infrastructure/auth"
	"jan-server/services/media-storage/internal/infrastructure/database"
	"jan-server/services/media-storage/internal/infrastructure/database/transaction"
	"jan-server/services/media-storage/internal/infrastructure/logger"
	"jan-server/services/media-storage/internal/infrastructure/observability"
	repo "jan-server/services/media-storage/internal/infrastructure/repository/media"
	"jan-server/services/media-storage/internal/interfaces/httpserver"
	"jan-server/services/media-storage/internal/interfaces/httpserver/handlers"
)

// @title Media Storage API
// @version 1.0
// @description Media upload, catalog and HTTP range-streaming service
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-Media-Service-Key
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	reconciler *domain.Reconciler
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, reconciler *domain.Reconciler, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		reconciler: reconciler,
		log:        log,
	}
}

// Start runs the reconciler in the background and blocks on the HTTP server.
func (a *Application) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.reconciler.Run(ctx)
	}()

	err := a.httpServer.Run(ctx)
	cancel()
	<-done
	return err
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := newGormDB(ctx, newDatabaseConfig(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	store, err := provideStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	redisClient, err := provideRedis(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error().Err(err).Msg("close redis")
			}
		}()
	}
	locker := provideLocker(cfg, redisClient, log)

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth")
	}
	defer authValidator.Close()

	tx := transaction.NewDatabase(db)
	images := repo.NewImageRepository(tx)
	audio := repo.NewAudioRepository(tx)
	downloads := repo.NewDownloadRepository(tx)
	events := repo.NewReconciliationRepository(tx)

	mediaService := domain.NewService(cfg, store, images, audio, downloads, events, tx, locker,
		transcode.NewImageTranscoder(log), log)
	reconciler := domain.NewReconciler(domain.NewReconcilerConfig(cfg), events, store, images, audio, downloads, tx, locker, log)

	provider := handlers.NewProvider(cfg, provideHandlerServices(
		mediaService,
		domain.NewStreamService(store, images, audio, downloads, log),
		domain.NewGalleryService(images, store, events, tx, locker, log),
		reconciler,
		store,
		db,
	), authValidator, log)

	httpServer := httpserver.New(cfg, log, provider, authValidator)
	app := NewApplication(httpServer, reconciler, log)

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}


package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	iofs "github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"jan-server/services/media-storage/internal/infrastructure/database/migrations"
)

// AutoMigrate applies all pending SQL migrations bundled with the service.
func AutoMigrate(ctx context.Context, gormDB *gorm.DB, log zerolog.Logger) (err error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			log.Debug().Str("file", entry.Name()).Msg("found migration file")
		}
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("retrieve sql db: %w", err)
	}

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire dedicated connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("initialize postgres driver: %w", err)
	}
	defer func() {
		if closeErr := driver.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close migration connection: %w", closeErr)
		}
	}()

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	defer func() {
		if closeErr := source.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close migration source: %w", closeErr)
		}
	}()

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	version, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info().Msg("no migrations have been applied yet")
	case err != nil:
		log.Warn().Err(err).Msg("error getting migration version")
	default:
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current migration state")
	}

	if dirty {
		log.Warn().Uint("version", version).Msg("database is in dirty state, forcing version")
		if forceErr := migrator.Force(int(version)); forceErr != nil {
			return fmt.Errorf("force version %d to clear dirty state: %w", version, forceErr)
		}
	}

	if err = migrator.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", err)
		}
		err = nil
		log.Info().Msg("no new migrations to apply")
	} else {
		log.Info().Msg("applied media storage migrations")
	}

	return nil
}

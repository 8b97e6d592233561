package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/infrastructure/metrics"
	"jan-server/services/media-storage/internal/utils/platformerrors"
)

const (
	backendS3    = "s3"
	backendMinio = "minio"
	backendLocal = "local"
)

// BucketInitializer is implemented by backends that can create missing buckets at startup.
type BucketInitializer interface {
	EnsureBuckets(ctx context.Context) error
}

// New returns the object store selected by MEDIA_STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.ObjectStore, error) {
	switch {
	case cfg.IsLocalStorage():
		return NewLocalStorage(cfg, log)
	case cfg.IsMinioStorage():
		return NewMinioStorage(cfg, log)
	case cfg.IsS3Storage():
		return NewS3Storage(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func buckets(cfg *config.Config) []string {
	return []string{cfg.ImageBucket, cfg.AudioBucket, cfg.DownloadBucket}
}

// observe records the outcome of one backend call.
func observe(backend, operation string, started time.Time, err error) {
	status := "success"
	if err != nil && !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		status = "error"
	}
	metrics.RecordStorageOperation(backend, operation, status, time.Since(started).Seconds())
}

func isNotFound(err error) bool {
	return platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound)
}

func storageError(ctx context.Context, operation, bucket, key string, err error, code string) error {
	return platformerrors.NewErrorWithContext(ctx,
		platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeStorage,
		"object storage operation failed",
		err,
		code,
		map[string]any{"operation": operation, "bucket": bucket, "key": key},
	)
}

func objectNotFound(ctx context.Context, bucket, key string, err error) error {
	return platformerrors.NewErrorWithContext(ctx,
		platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeNotFound,
		"object not found",
		err,
		"5e0c7a1d-8b3f-4c2e-9d6a-0f4b8e2c6a11",
		map[string]any{"bucket": bucket, "key": key},
	)
}

func rangeNotSatisfiable(ctx context.Context, start, total int64) error {
	return platformerrors.NewErrorWithContext(ctx,
		platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeRangeNotSatisfiable,
		"requested range not satisfiable",
		nil,
		"a3d9f2b7-1c4e-4f8a-b6d2-7e0c9a5b3f12",
		map[string]any{"total_size": total, "start": start},
	)
}

// clampRange resolves an inclusive [start, end] window inside an object of total bytes.
func clampRange(ctx context.Context, start int64, end *int64, total int64) (int64, int64, error) {
	if start < 0 || start >= total {
		return 0, 0, rangeNotSatisfiable(ctx, start, total)
	}
	last := total - 1
	if end != nil && *end < last {
		last = *end
	}
	if last < start {
		return 0, 0, rangeNotSatisfiable(ctx, start, total)
	}
	return start, last, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
	domain "jan-server/services/media-storage/internal/domain/media"
)

var errInvalidKey = errors.New("object key escapes the storage root")

// LocalStorage stores blobs on the local filesystem, one directory per bucket.
type LocalStorage struct {
	basePath string
	buckets  []string
	log      zerolog.Logger
}

// NewLocalStorage creates a new local filesystem storage backend.
func NewLocalStorage(cfg *config.Config, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()

	basePath := strings.TrimSpace(cfg.LocalStoragePath)
	if basePath == "" {
		return nil, fmt.Errorf("MEDIA_LOCAL_STORAGE_PATH is required for local storage")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	storage := &LocalStorage{
		basePath: basePath,
		buckets:  buckets(cfg),
		log:      logger,
	}

	logger.Info().
		Str("path", basePath).
		Msg("local storage initialized")

	return storage, nil
}

// EnsureBuckets creates one directory per configured bucket.
func (l *LocalStorage) EnsureBuckets(context.Context) error {
	for _, bucket := range l.buckets {
		if err := os.MkdirAll(filepath.Join(l.basePath, bucket), 0o755); err != nil {
			return fmt.Errorf("create bucket directory %s: %w", bucket, err)
		}
	}
	return nil
}

func (l *LocalStorage) path(bucket, key string) (string, error) {
	root := filepath.Join(l.basePath, filepath.Clean("/"+bucket))
	full := filepath.Join(root, filepath.FromSlash(key))
	if !strings.HasPrefix(full, root+string(os.PathSeparator)) {
		return "", errInvalidKey
	}
	return full, nil
}

func (l *LocalStorage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (err error) {
	started := time.Now()
	defer func() { observe(backendLocal, "put", started, err) }()

	fullPath, pathErr := l.path(bucket, key)
	if pathErr != nil {
		err = storageError(ctx, "put", bucket, key, pathErr, "8c4a0f7d-1b5e-4c9a-8f3d-7b0e4c8a2d28")
		return err
	}
	if mkErr := os.MkdirAll(filepath.Dir(fullPath), 0o755); mkErr != nil {
		err = storageError(ctx, "put", bucket, key, mkErr, "9d5b1a8e-2c6f-4dab-9a4e-8c1f5d9b3e29")
		return err
	}

	// Write to a temp file and rename so readers never observe a partial blob.
	tmp, tmpErr := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if tmpErr != nil {
		err = storageError(ctx, "put", bucket, key, tmpErr, "0e6c2b9f-3d7a-4ebc-8b5f-9d2a6e0c4f30")
		return err
	}
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr == nil {
		writeErr = os.Rename(tmp.Name(), fullPath)
	}
	if writeErr != nil {
		_ = os.Remove(tmp.Name())
		err = storageError(ctx, "put", bucket, key, writeErr, "1f7d3c0a-4e8b-4fcd-9c6a-0e3b7f1d5a31")
		return err
	}

	l.log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("file uploaded to local storage")
	return nil
}

func (l *LocalStorage) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	blob, err := l.Open(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer blob.Body.Close()

	data, readErr := io.ReadAll(blob.Body)
	if readErr != nil {
		return nil, storageError(ctx, "get", bucket, key, readErr, "2a8e4d1b-5f9c-4ade-8d7b-1f4c8a2e6b32")
	}
	return data, nil
}

func (l *LocalStorage) Open(ctx context.Context, bucket, key string) (blob *domain.Blob, err error) {
	started := time.Now()
	defer func() { observe(backendLocal, "get", started, err) }()

	file, info, openErr := l.open(ctx, bucket, key)
	if openErr != nil {
		err = openErr
		return nil, err
	}
	return &domain.Blob{
		Body:          file,
		ContentType:   contentTypeFor(key),
		ContentLength: info.Size(),
		TotalSize:     info.Size(),
		Start:         0,
		End:           info.Size() - 1,
		LastModified:  info.ModTime(),
	}, nil
}

func (l *LocalStorage) GetRange(ctx context.Context, bucket, key string, start int64, end *int64) (blob *domain.Blob, err error) {
	started := time.Now()
	defer func() { observe(backendLocal, "get_range", started, err) }()

	file, info, openErr := l.open(ctx, bucket, key)
	if openErr != nil {
		err = openErr
		return nil, err
	}
	first, last, rangeErr := clampRange(ctx, start, end, info.Size())
	if rangeErr != nil {
		_ = file.Close()
		err = rangeErr
		return nil, err
	}
	if _, seekErr := file.Seek(first, io.SeekStart); seekErr != nil {
		_ = file.Close()
		err = storageError(ctx, "get_range", bucket, key, seekErr, "3b9f5e2c-6a0d-4bef-9e8c-2a5d9b3f7c33")
		return nil, err
	}
	length := last - first + 1
	return &domain.Blob{
		Body:          readCloser{Reader: io.LimitReader(file, length), Closer: file},
		ContentType:   contentTypeFor(key),
		ContentLength: length,
		TotalSize:     info.Size(),
		Start:         first,
		End:           last,
		LastModified:  info.ModTime(),
	}, nil
}

func (l *LocalStorage) open(ctx context.Context, bucket, key string) (*os.File, os.FileInfo, error) {
	fullPath, err := l.path(bucket, key)
	if err != nil {
		return nil, nil, objectNotFound(ctx, bucket, key, err)
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, objectNotFound(ctx, bucket, key, err)
		}
		return nil, nil, storageError(ctx, "get", bucket, key, err, "4c0a6f3d-7b1e-4cf0-8f9d-3b6e0c4a8d34")
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, storageError(ctx, "get", bucket, key, err, "5d1b7a4e-8c2f-4d01-9a0e-4c7f1d5b9e35")
	}
	return file, info, nil
}

func (l *LocalStorage) Stat(ctx context.Context, bucket, key string) (info *domain.ObjectInfo, err error) {
	started := time.Now()
	defer func() { observe(backendLocal, "head", started, err) }()

	fullPath, pathErr := l.path(bucket, key)
	if pathErr != nil {
		err = objectNotFound(ctx, bucket, key, pathErr)
		return nil, err
	}
	fi, statErr := os.Stat(fullPath)
	if statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			err = objectNotFound(ctx, bucket, key, statErr)
			return nil, err
		}
		err = storageError(ctx, "head", bucket, key, statErr, "6e2c8b5f-9d3a-4e12-8b1f-5d8a2e6c0f36")
		return nil, err
	}
	return &domain.ObjectInfo{
		Size:         fi.Size(),
		ContentType:  contentTypeFor(key),
		LastModified: fi.ModTime(),
	}, nil
}

func (l *LocalStorage) Delete(ctx context.Context, bucket, key string) (err error) {
	started := time.Now()
	defer func() { observe(backendLocal, "delete", started, err) }()

	fullPath, pathErr := l.path(bucket, key)
	if pathErr != nil {
		err = storageError(ctx, "delete", bucket, key, pathErr, "7f3d9c6a-0e4b-4f23-9c2a-6e9b3f7d1a37")
		return err
	}
	if rmErr := os.Remove(fullPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = storageError(ctx, "delete", bucket, key, rmErr, "8a4e0d7b-1f5c-4a34-8d3b-7f0c4a8e2b38")
		return err
	}
	return nil
}

func (l *LocalStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := l.Stat(ctx, bucket, key)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// PresignPut is not supported by the filesystem backend.
func (l *LocalStorage) PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error) {
	return "", storageError(ctx, "presign", bucket, key, errors.New("presigned uploads require an S3 backend"), "9b5f1e8c-2a6d-4b45-9e4c-8a1d5b9f3c39")
}

func (l *LocalStorage) Health(context.Context) error {
	_, err := os.Stat(l.basePath)
	return err
}

type readCloser struct {
	io.Reader
	io.Closer
}

func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

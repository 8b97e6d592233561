package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
	domain "jan-server/services/media-storage/internal/domain/media"
)

// MinioStorage talks to MinIO or any S3 API through minio-go.
type MinioStorage struct {
	client  *minio.Client
	region  string
	buckets []string
	log     zerolog.Logger
}

func NewMinioStorage(cfg *config.Config, log zerolog.Logger) (*MinioStorage, error) {
	return newMinioStorage(cfg, nil, log)
}

// newMinioStorage accepts a custom transport; nil keeps the minio-go default.
func newMinioStorage(cfg *config.Config, transport http.RoundTripper, log zerolog.Logger) (*MinioStorage, error) {
	logger := log.With().Str("component", "minio-storage").Logger()

	endpoint, secure, err := minioEndpoint(cfg.S3Endpoint, cfg.S3UseSSL)
	if err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.S3AccessKeyID, cfg.S3SecretKey, ""),
		Secure:    secure,
		Region:    cfg.S3Region,
		Transport: transport,
	}
	if cfg.S3UsePathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	logger.Info().
		Str("endpoint", endpoint).
		Bool("secure", secure).
		Msg("minio storage initialized")

	return &MinioStorage{
		client:  client,
		region:  cfg.S3Region,
		buckets: buckets(cfg),
		log:     logger,
	}, nil
}

// minioEndpoint accepts either host:port or a full URL.
func minioEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("MEDIA_S3_ENDPOINT is required for the minio backend")
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimRight(raw, "/"), useSSL, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse MEDIA_S3_ENDPOINT: %w", err)
	}
	return u.Host, u.Scheme == "https", nil
}

// EnsureBuckets creates any configured bucket that does not exist yet.
func (m *MinioStorage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range m.buckets {
		exists, err := m.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if exists {
			continue
		}
		if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		m.log.Info().Str("bucket", bucket).Msg("created bucket")
	}
	return nil
}

func (m *MinioStorage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (err error) {
	started := time.Now()
	defer func() { observe(backendMinio, "put", started, err) }()

	_, putErr := m.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if putErr != nil {
		err = m.mapError(ctx, "put", bucket, key, putErr)
		return err
	}
	return nil
}

func (m *MinioStorage) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	blob, err := m.Open(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer blob.Body.Close()

	data, readErr := io.ReadAll(blob.Body)
	if readErr != nil {
		return nil, m.mapError(ctx, "get", bucket, key, readErr)
	}
	return data, nil
}

func (m *MinioStorage) Open(ctx context.Context, bucket, key string) (blob *domain.Blob, err error) {
	started := time.Now()
	defer func() { observe(backendMinio, "get", started, err) }()

	obj, getErr := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if getErr != nil {
		err = m.mapError(ctx, "get", bucket, key, getErr)
		return nil, err
	}
	// GetObject is lazy; Stat forces the request so missing objects fail here.
	info, statErr := obj.Stat()
	if statErr != nil {
		_ = obj.Close()
		err = m.mapError(ctx, "get", bucket, key, statErr)
		return nil, err
	}
	return &domain.Blob{
		Body:          obj,
		ContentType:   info.ContentType,
		ContentLength: info.Size,
		TotalSize:     info.Size,
		Start:         0,
		End:           info.Size - 1,
		LastModified:  info.LastModified,
	}, nil
}

func (m *MinioStorage) GetRange(ctx context.Context, bucket, key string, start int64, end *int64) (blob *domain.Blob, err error) {
	info, err := m.Stat(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	first, last, err := clampRange(ctx, start, end, info.Size)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	defer func() { observe(backendMinio, "get_range", started, err) }()

	opts := minio.GetObjectOptions{}
	if rangeErr := opts.SetRange(first, last); rangeErr != nil {
		err = m.mapError(ctx, "get_range", bucket, key, rangeErr)
		return nil, err
	}
	obj, getErr := m.client.GetObject(ctx, bucket, key, opts)
	if getErr != nil {
		err = m.mapError(ctx, "get_range", bucket, key, getErr)
		return nil, err
	}
	return &domain.Blob{
		Body:          obj,
		ContentType:   info.ContentType,
		ContentLength: last - first + 1,
		TotalSize:     info.Size,
		Start:         first,
		End:           last,
		LastModified:  info.LastModified,
	}, nil
}

func (m *MinioStorage) Stat(ctx context.Context, bucket, key string) (info *domain.ObjectInfo, err error) {
	started := time.Now()
	defer func() { observe(backendMinio, "head", started, err) }()

	stat, statErr := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if statErr != nil {
		err = m.mapError(ctx, "head", bucket, key, statErr)
		return nil, err
	}
	return &domain.ObjectInfo{
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		LastModified: stat.LastModified,
		ETag:         stat.ETag,
	}, nil
}

func (m *MinioStorage) Delete(ctx context.Context, bucket, key string) (err error) {
	started := time.Now()
	defer func() { observe(backendMinio, "delete", started, err) }()

	if delErr := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); delErr != nil {
		if isMinioNotFound(delErr) {
			return nil
		}
		err = m.mapError(ctx, "delete", bucket, key, delErr)
		return err
	}
	return nil
}

func (m *MinioStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := m.Stat(ctx, bucket, key)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (m *MinioStorage) PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error) {
	var headers http.Header
	if contentType != "" {
		headers = http.Header{"Content-Type": []string{contentType}}
	}
	// Signing Content-Type means the client must upload with the declared type.
	u, err := m.client.PresignHeader(ctx, http.MethodPut, bucket, key, ttl, nil, headers)
	if err != nil {
		return "", m.mapError(ctx, "presign", bucket, key, err)
	}
	return u.String(), nil
}

func (m *MinioStorage) Health(ctx context.Context) error {
	for _, bucket := range m.buckets {
		exists, err := m.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
	}
	return nil
}

func (m *MinioStorage) mapError(ctx context.Context, operation, bucket, key string, err error) error {
	if isMinioNotFound(err) {
		return objectNotFound(ctx, bucket, key, err)
	}
	m.log.Error().Err(err).Str("operation", operation).Str("bucket", bucket).Str("key", key).Msg("minio operation failed")
	return storageError(ctx, operation, bucket, key, err, "7b3f9e6c-0a4d-4b8f-9e2c-6a9d3b7f1c27")
}

func isMinioNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

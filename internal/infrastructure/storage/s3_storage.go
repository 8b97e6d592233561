package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
	domain "jan-server/services/media-storage/internal/domain/media"
)

var errStorageDisabled = errors.New("media storage backend is not configured; set MEDIA_S3_* to enable uploads")

// S3Storage handles uploads and downloads to S3-compatible storage.
type S3Storage struct {
	client   *s3.Client
	presign  *s3.PresignClient
	buckets  []string
	log      zerolog.Logger
	disabled bool
}

func NewS3Storage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Storage, error) {
	logger := log.With().Str("component", "s3-storage").Logger()
	storage := &S3Storage{
		buckets: buckets(cfg),
		log:     logger,
	}

	accessKey := strings.TrimSpace(cfg.S3AccessKeyID)
	secretKey := strings.TrimSpace(cfg.S3SecretKey)
	if accessKey == "" || secretKey == "" {
		logger.Warn().Msg("MEDIA_S3_ACCESS_KEY_ID or MEDIA_S3_SECRET_ACCESS_KEY is not set; media storage will be disabled until configured")
		storage.disabled = true
		return storage, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	storage.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	// Presigned URLs are handed to clients, so they are signed against the public endpoint.
	presignEndpoint := cfg.S3PublicEndpoint
	if presignEndpoint == "" {
		presignEndpoint = cfg.S3Endpoint
	}
	storage.presign = s3.NewPresignClient(s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if presignEndpoint != "" {
			o.BaseEndpoint = aws.String(presignEndpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	}))

	logger.Info().
		Str("endpoint", cfg.S3Endpoint).
		Str("region", cfg.S3Region).
		Strs("buckets", storage.buckets).
		Msg("s3 storage initialized")

	return storage, nil
}

func (s *S3Storage) ensureEnabled(ctx context.Context, operation, bucket, key string) error {
	if s.disabled {
		return storageError(ctx, operation, bucket, key, errStorageDisabled, "0b6e2d9a-3f7c-4a1e-8c5b-9d2f6a0e4b21")
	}
	return nil
}

func (s *S3Storage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (err error) {
	started := time.Now()
	defer func() { observe(backendS3, "put", started, err) }()
	if err = s.ensureEnabled(ctx, "put", bucket, key); err != nil {
		return err
	}
	_, putErr := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if putErr != nil {
		s.log.Error().Err(putErr).Str("bucket", bucket).Str("key", key).Msg("put object failed")
		err = storageError(ctx, "put", bucket, key, putErr, "1c7f3e0b-4a8d-4b2f-9e6c-0a3d7b1f5c22")
		return err
	}
	return nil
}

func (s *S3Storage) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	blob, err := s.Open(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer blob.Body.Close()

	data, readErr := io.ReadAll(blob.Body)
	if readErr != nil {
		return nil, storageError(ctx, "get", bucket, key, readErr, "2d8a4f1c-5b9e-4c3a-8f7d-1b4e8c2a6d23")
	}
	return data, nil
}

func (s *S3Storage) Open(ctx context.Context, bucket, key string) (blob *domain.Blob, err error) {
	started := time.Now()
	defer func() { observe(backendS3, "get", started, err) }()
	if err = s.ensureEnabled(ctx, "get", bucket, key); err != nil {
		return nil, err
	}
	out, getErr := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if getErr != nil {
		err = s.mapError(ctx, "get", bucket, key, getErr)
		return nil, err
	}
	size := aws.ToInt64(out.ContentLength)
	return &domain.Blob{
		Body:          out.Body,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: size,
		TotalSize:     size,
		Start:         0,
		End:           size - 1,
		LastModified:  aws.ToTime(out.LastModified),
	}, nil
}

func (s *S3Storage) GetRange(ctx context.Context, bucket, key string, start int64, end *int64) (blob *domain.Blob, err error) {
	info, err := s.Stat(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	first, last, err := clampRange(ctx, start, end, info.Size)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	defer func() { observe(backendS3, "get_range", started, err) }()
	out, getErr := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", first, last)),
	})
	if getErr != nil {
		err = s.mapError(ctx, "get_range", bucket, key, getErr)
		return nil, err
	}
	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = info.ContentType
	}
	return &domain.Blob{
		Body:          out.Body,
		ContentType:   contentType,
		ContentLength: last - first + 1,
		TotalSize:     info.Size,
		Start:         first,
		End:           last,
		LastModified:  info.LastModified,
	}, nil
}

func (s *S3Storage) Stat(ctx context.Context, bucket, key string) (info *domain.ObjectInfo, err error) {
	started := time.Now()
	defer func() { observe(backendS3, "head", started, err) }()
	if err = s.ensureEnabled(ctx, "head", bucket, key); err != nil {
		return nil, err
	}
	out, headErr := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if headErr != nil {
		err = s.mapError(ctx, "head", bucket, key, headErr)
		return nil, err
	}
	return &domain.ObjectInfo{
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

func (s *S3Storage) Delete(ctx context.Context, bucket, key string) (err error) {
	started := time.Now()
	defer func() { observe(backendS3, "delete", started, err) }()
	if err = s.ensureEnabled(ctx, "delete", bucket, key); err != nil {
		return err
	}
	_, delErr := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if delErr != nil && !isS3NotFound(delErr) {
		s.log.Error().Err(delErr).Str("bucket", bucket).Str("key", key).Msg("delete object failed")
		err = storageError(ctx, "delete", bucket, key, delErr, "3e9b5a2d-6c0f-4d4b-9a8e-2c5f9d3b7e24")
		return err
	}
	return nil
}

func (s *S3Storage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.Stat(ctx, bucket, key)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *S3Storage) PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error) {
	if err := s.ensureEnabled(ctx, "presign", bucket, key); err != nil {
		return "", err
	}
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", storageError(ctx, "presign", bucket, key, err, "4f0c6b3e-7d1a-4e5c-8b9f-3d6a0e4c8f25")
	}
	return req.URL, nil
}

// Health performs a HeadBucket request per configured bucket.
func (s *S3Storage) Health(ctx context.Context) error {
	if s.disabled {
		return errStorageDisabled
	}
	for _, bucket := range s.buckets {
		if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
			return fmt.Errorf("head bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (s *S3Storage) mapError(ctx context.Context, operation, bucket, key string, err error) error {
	if isS3NotFound(err) {
		return objectNotFound(ctx, bucket, key, err)
	}
	s.log.Error().Err(err).Str("operation", operation).Str("bucket", bucket).Str("key", key).Msg("s3 operation failed")
	return storageError(ctx, operation, bucket, key, err, "6a2e8d5b-9f3c-4a7e-8d1b-5f8c2a6e0b26")
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

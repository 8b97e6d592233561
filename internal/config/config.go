package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Category buckets recognised by the storage layer.
const (
	CategoryImage    = "image"
	CategoryAudio    = "audio"
	CategoryDownload = "download"
)

// Config holds the environment driven configuration for the media storage service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"media-storage"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"MEDIA_STORAGE_PORT" envDefault:"8290"`
	LogLevel        string        `env:"MEDIA_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"MEDIA_LOG_FORMAT" envDefault:"console"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database
	DBPostgresqlWriteDSN string        `env:"DB_POSTGRESQL_WRITE_DSN,notEmpty"`
	DBMaxIdleConns       int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns       int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Storage Backend Selection
	StorageBackend string `env:"MEDIA_STORAGE_BACKEND" envDefault:"s3"` // Options: "s3", "minio" or "local"

	// Local Storage Configuration
	LocalStoragePath string `env:"MEDIA_LOCAL_STORAGE_PATH"`

	// S3 / MinIO Configuration
	S3Endpoint       string `env:"MEDIA_S3_ENDPOINT" envDefault:"https://s3.menlo.ai"`
	S3PublicEndpoint string `env:"MEDIA_S3_PUBLIC_ENDPOINT"`
	S3Region         string `env:"MEDIA_S3_REGION" envDefault:"us-west-2"`
	S3AccessKeyID    string `env:"MEDIA_S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"MEDIA_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle   bool   `env:"MEDIA_S3_USE_PATH_STYLE" envDefault:"true"`
	S3UseSSL         bool   `env:"MEDIA_S3_USE_SSL" envDefault:"true"`

	// Buckets per media category
	ImageBucket    string `env:"MEDIA_IMAGE_BUCKET" envDefault:"images"`
	AudioBucket    string `env:"MEDIA_AUDIO_BUCKET" envDefault:"audio"`
	DownloadBucket string `env:"MEDIA_DOWNLOAD_BUCKET" envDefault:"downloads"`

	// Public URL base for public assets (CDN or public endpoint)
	PublicBaseURL    string        `env:"MEDIA_PUBLIC_BASE_URL"`
	PresignUploadTTL time.Duration `env:"MEDIA_PRESIGN_UPLOAD_TTL" envDefault:"15m"`

	// Upload limits
	ImageMaxBytes    int64 `env:"MEDIA_IMAGE_MAX_BYTES" envDefault:"10485760"`
	AudioMaxBytes    int64 `env:"MEDIA_AUDIO_MAX_BYTES" envDefault:"104857600"`
	DownloadMaxBytes int64 `env:"MEDIA_DOWNLOAD_MAX_BYTES" envDefault:"1073741824"`

	// Redis (optional; enables distributed locks)
	RedisURL       string        `env:"REDIS_URL"`
	GalleryLockTTL time.Duration `env:"GALLERY_LOCK_TTL" envDefault:"30s"`

	// Reconciliation worker
	ReconcileInterval    time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1m"`
	ReconcileMaxAttempts int           `env:"RECONCILE_MAX_ATTEMPTS" envDefault:"5"`
	ReconcileBatchSize   int           `env:"RECONCILE_BATCH_SIZE" envDefault:"50"`

	// HTTP
	UploadRateLimitRPS   float64  `env:"UPLOAD_RATE_LIMIT_RPS" envDefault:"5"`
	UploadRateLimitBurst int      `env:"UPLOAD_RATE_LIMIT_BURST" envDefault:"10"`
	CORSAllowOrigins     []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`

	// Authentication
	AuthEnabled  bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer   string `env:"AUTH_ISSUER"`
	AuthAudience string `env:"AUTH_AUDIENCE"`
	AuthJWKSURL  string `env:"AUTH_JWKS_URL"`
	ServiceKey   string `env:"MEDIA_SERVICE_KEY"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.S3AccessKeyID = strings.TrimSpace(c.S3AccessKeyID)
	c.S3SecretKey = strings.TrimSpace(c.S3SecretKey)
	c.S3Endpoint = strings.TrimSpace(c.S3Endpoint)
	c.S3PublicEndpoint = strings.TrimSpace(c.S3PublicEndpoint)
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
	c.ImageBucket = strings.TrimSpace(c.ImageBucket)
	c.AudioBucket = strings.TrimSpace(c.AudioBucket)
	c.DownloadBucket = strings.TrimSpace(c.DownloadBucket)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.ServiceKey = strings.TrimSpace(c.ServiceKey)

	if c.ImageBucket == "" || c.AudioBucket == "" || c.DownloadBucket == "" {
		return fmt.Errorf("MEDIA_IMAGE_BUCKET, MEDIA_AUDIO_BUCKET and MEDIA_DOWNLOAD_BUCKET must not be empty")
	}
	if c.ImageMaxBytes <= 0 {
		c.ImageMaxBytes = 10 * 1024 * 1024
	}
	if c.AudioMaxBytes <= 0 {
		c.AudioMaxBytes = 100 * 1024 * 1024
	}
	if c.DownloadMaxBytes <= 0 {
		c.DownloadMaxBytes = 1024 * 1024 * 1024
	}
	if c.ReconcileMaxAttempts <= 0 {
		c.ReconcileMaxAttempts = 5
	}
	if c.ReconcileBatchSize <= 0 {
		c.ReconcileBatchSize = 50
	}
	if c.IsLocalStorage() && strings.TrimSpace(c.LocalStoragePath) == "" {
		return fmt.Errorf("MEDIA_LOCAL_STORAGE_PATH is required when MEDIA_STORAGE_BACKEND is local")
	}
	if c.AuthEnabled {
		if strings.TrimSpace(c.AuthIssuer) == "" {
			return fmt.Errorf("AUTH_ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(c.AuthJWKSURL) == "" {
			return fmt.Errorf("AUTH_JWKS_URL is required when AUTH_ENABLED is true")
		}
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsLocalStorage returns true if local storage backend is configured.
func (c *Config) IsLocalStorage() bool {
	return c.backend() == "local"
}

// IsMinioStorage returns true if the MinIO backend is configured.
func (c *Config) IsMinioStorage() bool {
	return c.backend() == "minio"
}

// IsS3Storage returns true if S3 storage backend is configured.
func (c *Config) IsS3Storage() bool {
	backend := c.backend()
	return backend == "" || backend == "s3"
}

func (c *Config) backend() string {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend))
}

// BucketFor returns the bucket that holds blobs of the given category.
func (c *Config) BucketFor(category string) string {
	switch category {
	case CategoryImage:
		return c.ImageBucket
	case CategoryAudio:
		return c.AudioBucket
	case CategoryDownload:
		return c.DownloadBucket
	default:
		return ""
	}
}

// PublicURLBase returns the base used to build public asset URLs.
// MEDIA_PUBLIC_BASE_URL wins, then the public S3 endpoint, then the S3 endpoint.
func (c *Config) PublicURLBase() string {
	if c.PublicBaseURL != "" {
		return c.PublicBaseURL
	}
	if c.S3PublicEndpoint != "" {
		return strings.TrimRight(c.S3PublicEndpoint, "/")
	}
	return strings.TrimRight(c.S3Endpoint, "/")
}

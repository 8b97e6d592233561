package storage

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/utils/platformerrors"
)

func newFakeS3(t *testing.T) *S3Storage {
	t.Helper()
	backend := s3mem.New()
	faker := gofakes3.New(backend)
	ts := httptest.NewServer(faker.Server())
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		S3Endpoint:     ts.URL,
		S3Region:       "us-east-1",
		S3AccessKeyID:  "test",
		S3SecretKey:    "test",
		S3UsePathStyle: true,
		ImageBucket:    "images",
		AudioBucket:    "audio",
		DownloadBucket: "downloads",
	}
	for _, bucket := range buckets(cfg) {
		require.NoError(t, backend.CreateBucket(bucket))
	}

	store, err := NewS3Storage(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestS3Storage_RoundTripAndRanges(t *testing.T) {
	ctx := context.Background()
	store := newFakeS3(t)
	const n = 5000
	data := payload(n)

	require.NoError(t, store.Put(ctx, "audio", "tracks/b.mp3", data, "audio/mpeg"))

	info, err := store.Stat(ctx, "audio", "tracks/b.mp3")
	require.NoError(t, err)
	assert.Equal(t, int64(n), info.Size)
	assert.Equal(t, "audio/mpeg", info.ContentType)

	got, err := store.Get(ctx, "audio", "tracks/b.mp3")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	end := int64(1999)
	blob, err := store.GetRange(ctx, "audio", "tracks/b.mp3", 1000, &end)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), blob.ContentLength)
	assert.Equal(t, int64(n), blob.TotalSize)
	assert.Equal(t, data[1000:2000], readBlob(t, blob.Body))

	blob, err = store.GetRange(ctx, "audio", "tracks/b.mp3", 4000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(n-1), blob.End)
	assert.Equal(t, data[4000:], readBlob(t, blob.Body))

	_, err = store.GetRange(ctx, "audio", "tracks/b.mp3", n+1, nil)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeRangeNotSatisfiable))
}

func TestS3Storage_MissingObject(t *testing.T) {
	ctx := context.Background()
	store := newFakeS3(t)

	_, err := store.Open(ctx, "images", "nope.jpg")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	exists, err := store.Exists(ctx, "images", "nope.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, store.Delete(ctx, "images", "nope.jpg"))
}

func TestS3Storage_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeS3(t)
	require.NoError(t, store.Put(ctx, "downloads", "pack.zip", payload(10), "application/zip"))

	require.NoError(t, store.Delete(ctx, "downloads", "pack.zip"))
	require.NoError(t, store.Delete(ctx, "downloads", "pack.zip"))

	exists, err := store.Exists(ctx, "downloads", "pack.zip")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestS3Storage_PresignPutAndHealth(t *testing.T) {
	ctx := context.Background()
	store := newFakeS3(t)

	u, err := store.PresignPut(ctx, "images", "uploads/x.png", "image/png", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.Contains(u, "/images/uploads/x.png"))
	assert.Contains(t, u, "X-Amz-Signature")

	assert.NoError(t, store.Health(ctx))
}

func TestS3Storage_DisabledWithoutCredentials(t *testing.T) {
	store, err := NewS3Storage(context.Background(), &config.Config{S3Region: "us-east-1"}, zerolog.Nop())
	require.NoError(t, err)

	err = store.Put(context.Background(), "images", "a.jpg", []byte{1}, "image/jpeg")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeStorage))
	assert.NotContains(t, platformerrors.GetPlatformError(err).Message, "MEDIA_S3")
	assert.ErrorIs(t, store.Health(context.Background()), errStorageDisabled)
}

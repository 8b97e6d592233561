package storage

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/utils/platformerrors"
)

func newLocalStorage(t *testing.T) *LocalStorage {
	t.Helper()
	cfg := &config.Config{
		LocalStoragePath: t.TempDir(),
		ImageBucket:      "images",
		AudioBucket:      "audio",
		DownloadBucket:   "downloads",
	}
	store, err := NewLocalStorage(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.EnsureBuckets(context.Background()))
	return store
}

func readBlob(t *testing.T, body io.ReadCloser) []byte {
	t.Helper()
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	return data
}

func payload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newLocalStorage(t)
	data := payload(4096)

	require.NoError(t, store.Put(ctx, "audio", "tracks/a.mp3", data, "audio/mpeg"))

	got, err := store.Get(ctx, "audio", "tracks/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	exists, err := store.Exists(ctx, "audio", "tracks/a.mp3")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "audio", "tracks/a.mp3"))
	require.NoError(t, store.Delete(ctx, "audio", "tracks/a.mp3"))

	exists, err = store.Exists(ctx, "audio", "tracks/a.mp3")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Get(ctx, "audio", "tracks/a.mp3")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestLocalStorage_GetRange(t *testing.T) {
	ctx := context.Background()
	store := newLocalStorage(t)
	const n = 1000
	data := payload(n)
	require.NoError(t, store.Put(ctx, "audio", "t.wav", data, "audio/wav"))

	full := int64(n - 1)
	blob, err := store.GetRange(ctx, "audio", "t.wav", 0, &full)
	require.NoError(t, err)
	assert.Equal(t, data, readBlob(t, blob.Body))
	assert.Equal(t, int64(n), blob.ContentLength)

	blob, err = store.GetRange(ctx, "audio", "t.wav", 250, nil)
	require.NoError(t, err)
	assert.Equal(t, data[250:], readBlob(t, blob.Body))
	assert.Equal(t, int64(250), blob.Start)
	assert.Equal(t, int64(n-1), blob.End)
	assert.Equal(t, int64(n), blob.TotalSize)

	past := int64(n + 100)
	blob, err = store.GetRange(ctx, "audio", "t.wav", 0, &past)
	require.NoError(t, err)
	assert.Equal(t, int64(n-1), blob.End)
	assert.Len(t, readBlob(t, blob.Body), n)

	_, err = store.GetRange(ctx, "audio", "t.wav", n, nil)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeRangeNotSatisfiable))
	total, ok := platformerrors.GetPlatformError(err).ContextInt64("total_size")
	assert.True(t, ok)
	assert.Equal(t, int64(n), total)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	store := newLocalStorage(t)
	err := store.Put(context.Background(), "images", "../../etc/passwd", []byte("x"), "text/plain")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeStorage))
}

func TestClampRange(t *testing.T) {
	ctx := context.Background()
	end := int64(5)

	first, last, err := clampRange(ctx, 2, &end, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first)
	assert.Equal(t, int64(5), last)

	first, last, err = clampRange(ctx, 0, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), first)
	assert.Equal(t, int64(9), last)

	_, _, err = clampRange(ctx, 0, nil, 0)
	assert.Error(t, err)
}

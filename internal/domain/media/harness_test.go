package media_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/domain/transcode"
	"jan-server/services/media-storage/internal/infrastructure/cache"
	"jan-server/services/media-storage/internal/infrastructure/database/entities"
	"jan-server/services/media-storage/internal/infrastructure/database/transaction"
	repo "jan-server/services/media-storage/internal/infrastructure/repository/media"
	"jan-server/services/media-storage/internal/infrastructure/storage"
)

// faultyStore wraps a real store, counts data-path calls and injects failures.
type faultyStore struct {
	media.ObjectStore

	mu         sync.Mutex
	calls      int
	putErr     error
	deleteErr  error
	presignURL string
	lastPutKey string
}

func (f *faultyStore) touch() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *faultyStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *faultyStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	f.touch()
	f.mu.Lock()
	err := f.putErr
	f.lastPutKey = key
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ObjectStore.Put(ctx, bucket, key, data, contentType)
}

func (f *faultyStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	f.touch()
	return f.ObjectStore.Get(ctx, bucket, key)
}

func (f *faultyStore) Open(ctx context.Context, bucket, key string) (*media.Blob, error) {
	f.touch()
	return f.ObjectStore.Open(ctx, bucket, key)
}

func (f *faultyStore) GetRange(ctx context.Context, bucket, key string, start int64, end *int64) (*media.Blob, error) {
	f.touch()
	return f.ObjectStore.GetRange(ctx, bucket, key, start, end)
}

func (f *faultyStore) Stat(ctx context.Context, bucket, key string) (*media.ObjectInfo, error) {
	f.touch()
	return f.ObjectStore.Stat(ctx, bucket, key)
}

func (f *faultyStore) Delete(ctx context.Context, bucket, key string) error {
	f.touch()
	f.mu.Lock()
	err := f.deleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ObjectStore.Delete(ctx, bucket, key)
}

func (f *faultyStore) PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error) {
	f.touch()
	if f.presignURL != "" {
		return f.presignURL + "/" + bucket + "/" + key, nil
	}
	return f.ObjectStore.PresignPut(ctx, bucket, key, contentType, ttl)
}

func (f *faultyStore) setPutErr(err error) {
	f.mu.Lock()
	f.putErr = err
	f.mu.Unlock()
}

func (f *faultyStore) setDeleteErr(err error) {
	f.mu.Lock()
	f.deleteErr = err
	f.mu.Unlock()
}

func (f *faultyStore) putKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPutKey
}

// faultyImages fails Create on demand.
type faultyImages struct {
	*repo.ImageRepository
	mu        sync.Mutex
	createErr error
}

func (f *faultyImages) Create(ctx context.Context, img *media.Image) error {
	f.mu.Lock()
	err := f.createErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ImageRepository.Create(ctx, img)
}

func (f *faultyImages) setCreateErr(err error) {
	f.mu.Lock()
	f.createErr = err
	f.mu.Unlock()
}

type harness struct {
	cfg        *config.Config
	db         *transaction.Database
	store      *faultyStore
	images     *faultyImages
	audio      *repo.AudioRepository
	downloads  *repo.DownloadRepository
	events     *repo.ReconciliationRepository
	service    *media.Service
	gallery    *media.GalleryService
	streams    *media.StreamService
	reconciler *media.Reconciler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{
		StorageBackend:       "local",
		LocalStoragePath:     t.TempDir(),
		ImageBucket:          "images",
		AudioBucket:          "audio",
		DownloadBucket:       "downloads",
		PublicBaseURL:        "https://cdn.example.com",
		PresignUploadTTL:     15 * time.Minute,
		ImageMaxBytes:        10 * 1024 * 1024,
		AudioMaxBytes:        100 * 1024 * 1024,
		DownloadMaxBytes:     100 * 1024 * 1024,
		ReconcileMaxAttempts: 2,
		ReconcileBatchSize:   10,
		ReconcileInterval:    time.Minute,
	}

	local, err := storage.NewLocalStorage(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, local.EnsureBuckets(context.Background()))
	store := &faultyStore{ObjectStore: local}

	gormDB, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, gormDB.AutoMigrate(entities.All()...))
	db := transaction.NewDatabase(gormDB)

	images := &faultyImages{ImageRepository: repo.NewImageRepository(db)}
	audio := repo.NewAudioRepository(db)
	downloads := repo.NewDownloadRepository(db)
	events := repo.NewReconciliationRepository(db)
	locker := cache.NewLocalLocker()
	log := zerolog.Nop()

	return &harness{
		cfg:       cfg,
		db:        db,
		store:     store,
		images:    images,
		audio:     audio,
		downloads: downloads,
		events:    events,
		service: media.NewService(cfg, store, images, audio, downloads, events, db, locker,
			transcode.NewImageTranscoder(log), log),
		gallery:    media.NewGalleryService(images, store, events, db, locker, log),
		streams:    media.NewStreamService(store, images, audio, downloads, log),
		reconciler: media.NewReconciler(media.NewReconcilerConfig(cfg), events, store, images, audio, downloads, db, locker, log),
	}
}

// solidJPEG encodes a single-colour image so the entropy-coded bytes stay free of markup.
func solidJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill := color.RGBA{R: 200, G: 120, B: 40, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// monoWAV returns a 16-bit mono PCM file at 8 kHz with dataSize bytes of silence.
func monoWAV(dataSize int) []byte {
	const (
		sampleRate = 8000
		channels   = 1
		bitDepth   = 16
	)
	blockAlign := uint16(channels * bitDepth / 8)
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate)*uint32(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitDepth))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

func zipArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("readme.txt")
	require.NoError(t, err)
	_, err = f.Write(bytes.Repeat([]byte("media storage "), 64))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func (h *harness) uploadGalleryImages(t *testing.T, galleryID string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		res, err := h.service.UploadImage(context.Background(),
			media.UploadFile{Data: solidJPEG(t, 32, 32), Filename: "photo.jpg", DeclaredMimeType: "image/jpeg"},
			media.ImageUploadOptions{GalleryID: galleryID, Folder: "artists"})
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}
	return ids
}

func (h *harness) galleryOrder(t *testing.T, galleryID string) []string {
	t.Helper()
	list, err := h.gallery.List(context.Background(), galleryID)
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for i, img := range list {
		require.Equal(t, i, img.Order, "order values must be contiguous")
		ids = append(ids, img.ID)
	}
	return ids
}

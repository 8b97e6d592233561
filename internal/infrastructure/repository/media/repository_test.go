package media

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/infrastructure/database/entities"
	"jan-server/services/media-storage/internal/infrastructure/database/transaction"
	"jan-server/services/media-storage/internal/utils/platformerrors"
	"jan-server/services/media-storage/utils/mediaid"
)

func newTestDB(t *testing.T) *transaction.Database {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(entities.All()...))
	return transaction.NewDatabase(db)
}

func newImage(gallery string, order int) *domain.Image {
	id := mediaid.New(mediaid.PrefixImage)
	img := &domain.Image{
		FileRecord: domain.FileRecord{
			ID:           id,
			Filename:     id + ".jpg",
			OriginalName: "photo.jpg",
			MimeType:     "image/jpeg",
			Filesize:     1024,
			BucketName:   "images",
			Key:          "gallery/" + id + ".jpg",
			URL:          "https://cdn.example.com/images/gallery/" + id + ".jpg",
		},
		Width:  640,
		Height: 480,
		Order:  order,
	}
	if gallery != "" {
		img.GalleryID = &gallery
	}
	return img
}

func seedGallery(t *testing.T, repo *ImageRepository, gallery string, n int) []*domain.Image {
	t.Helper()
	images := make([]*domain.Image, 0, n)
	for i := 0; i < n; i++ {
		img := newImage(gallery, i)
		require.NoError(t, repo.Create(context.Background(), img))
		images = append(images, img)
	}
	return images
}

func galleryIDs(t *testing.T, repo *ImageRepository, gallery string) []string {
	t.Helper()
	list, err := repo.ListByGallery(context.Background(), gallery)
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for i, img := range list {
		assert.Equal(t, i, img.Order)
		ids = append(ids, img.ID)
	}
	return ids
}

func TestImageRepository_CreateAndFind(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	ctx := context.Background()

	img := newImage("g1", 0)
	img.Alt = "sunset"
	require.NoError(t, repo.Create(ctx, img))
	assert.False(t, img.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.Key, got.Key)
	assert.Equal(t, "sunset", got.Alt)
	require.NotNil(t, got.GalleryID)
	assert.Equal(t, "g1", *got.GalleryID)

	exists, err := repo.ExistsByKey(ctx, "images", img.Key)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByKey(ctx, "images", "missing.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.FindByID(ctx, "img_missing")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestImageRepository_DuplicateKeyRejected(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	ctx := context.Background()

	first := newImage("", 0)
	require.NoError(t, repo.Create(ctx, first))

	second := newImage("", 0)
	second.Key = first.Key
	err := repo.Create(ctx, second)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeDatabaseError))
}

func TestImageRepository_FindByIDsKeepsRequestOrder(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	images := seedGallery(t, repo, "g1", 3)

	got, err := repo.FindByIDs(context.Background(), []string{images[2].ID, "img_missing", images[0].ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, images[2].ID, got[0].ID)
	assert.Equal(t, images[0].ID, got[1].ID)

	empty, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestImageRepository_UpdateOrdersPermutation(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	ctx := context.Background()
	images := seedGallery(t, repo, "g1", 5)

	// Move the image at position 1 to position 3: positions 2 and 3 shift up.
	err := repo.UpdateOrders(ctx, map[string]int{
		images[1].ID: 3,
		images[2].ID: 1,
		images[3].ID: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{images[0].ID, images[2].ID, images[3].ID, images[1].ID, images[4].ID}, galleryIDs(t, repo, "g1"))
}

func TestImageRepository_UpdateOrdersReverse(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	ctx := context.Background()
	images := seedGallery(t, repo, "g1", 4)

	orders := make(map[string]int, len(images))
	for i, img := range images {
		orders[img.ID] = len(images) - 1 - i
	}
	require.NoError(t, repo.UpdateOrders(ctx, orders))

	assert.Equal(t, []string{images[3].ID, images[2].ID, images[1].ID, images[0].ID}, galleryIDs(t, repo, "g1"))
}

func TestImageRepository_UpdateOrdersUnknownIDRollsBack(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	ctx := context.Background()
	images := seedGallery(t, repo, "g1", 3)

	err := repo.UpdateOrders(ctx, map[string]int{
		images[0].ID:  1,
		images[1].ID:  0,
		"img_missing": 2,
	})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	assert.Equal(t, []string{images[0].ID, images[1].ID, images[2].ID}, galleryIDs(t, repo, "g1"))
}

func TestImageRepository_UpdateOrderCollisionFails(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	images := seedGallery(t, repo, "g1", 2)

	err := repo.UpdateOrder(context.Background(), images[1].ID, 0)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeDatabaseError))
}

func TestImageRepository_GalleriesAreIndependent(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	ctx := context.Background()
	seedGallery(t, repo, "g1", 2)
	seedGallery(t, repo, "g2", 3)

	count, err := repo.CountByGallery(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	deleted, err := repo.DeleteByGallery(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	count, err = repo.CountByGallery(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestImageRepository_DeleteTwiceIsNotFound(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	ctx := context.Background()
	img := newImage("", 0)
	require.NoError(t, repo.Create(ctx, img))

	require.NoError(t, repo.Delete(ctx, img.ID))
	err := repo.Delete(ctx, img.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestRunInTx_RollbackDiscardsRows(t *testing.T) {
	db := newTestDB(t)
	repo := NewImageRepository(db)
	ctx := context.Background()
	img := newImage("", 0)

	boom := errors.New("boom")
	err := db.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.Create(ctx, img))
		exists, err := repo.ExistsByKey(ctx, img.BucketName, img.Key)
		require.NoError(t, err)
		assert.True(t, exists)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.FindByID(ctx, img.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestRunInTx_NestedFailureKeepsOuterWork(t *testing.T) {
	db := newTestDB(t)
	repo := NewImageRepository(db)
	ctx := context.Background()
	outer := newImage("", 0)
	inner := newImage("", 0)

	err := db.RunInTx(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, outer); err != nil {
			return err
		}
		nested := db.RunInTx(ctx, func(ctx context.Context) error {
			if err := repo.Create(ctx, inner); err != nil {
				return err
			}
			return errors.New("inner failed")
		})
		assert.Error(t, nested)
		return nil
	})
	require.NoError(t, err)

	_, err = repo.FindByID(ctx, outer.ID)
	assert.NoError(t, err)
	_, err = repo.FindByID(ctx, inner.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestAudioRepository_CRUD(t *testing.T) {
	repo := NewAudioRepository(newTestDB(t))
	ctx := context.Background()

	audio := &domain.AudioFile{
		FileRecord: domain.FileRecord{
			ID:           mediaid.New(mediaid.PrefixAudio),
			Filename:     "1700000000000_0123456789abcdef.mp3",
			OriginalName: "track.mp3",
			MimeType:     "audio/mpeg",
			Filesize:     4096,
			BucketName:   "audio",
			Key:          "music/1700000000000_0123456789abcdef.mp3",
			URL:          domain.PrivateURLScheme + "audio/music/1700000000000_0123456789abcdef.mp3",
		},
		Duration:   180,
		Bitrate:    320,
		SampleRate: 44100,
		Format:     "mp3",
	}
	require.NoError(t, repo.Create(ctx, audio))

	got, err := repo.FindByID(ctx, audio.ID)
	require.NoError(t, err)
	assert.Equal(t, 180, got.Duration)
	assert.False(t, got.IsPublic)
	assert.Equal(t, audio.Key, got.Key)

	list, err := repo.FindByIDs(ctx, []string{audio.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, audio.ID))
	err = repo.Delete(ctx, audio.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestDownloadRepository_CRUD(t *testing.T) {
	repo := NewDownloadRepository(newTestDB(t))
	ctx := context.Background()

	file := &domain.DownloadFile{FileRecord: domain.FileRecord{
		ID:           mediaid.New(mediaid.PrefixDownload),
		Filename:     "1700000000000_fedcba9876543210.zip",
		OriginalName: "bundle.zip",
		MimeType:     "application/zip",
		Filesize:     2048,
		BucketName:   "downloads",
		Key:          "1700000000000_fedcba9876543210.zip",
		URL:          domain.PrivateURLScheme + "downloads/1700000000000_fedcba9876543210.zip",
	}}
	require.NoError(t, repo.Create(ctx, file))

	exists, err := repo.ExistsByKey(ctx, "downloads", file.Key)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.FindByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "bundle.zip", got.OriginalName)

	require.NoError(t, repo.Delete(ctx, file.ID))
	_, err = repo.FindByID(ctx, file.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestReconciliationRepository_Lifecycle(t *testing.T) {
	repo := NewReconciliationRepository(newTestDB(t))
	ctx := context.Background()

	event := &domain.ReconciliationEvent{
		Kind:     domain.KindOrphanBlob,
		Category: "image",
		Bucket:   "images",
		Key:      "orphan.jpg",
		Reason:   "compensating delete failed",
	}
	require.NoError(t, repo.Record(ctx, event))
	assert.True(t, mediaid.IsValid(mediaid.PrefixEvent, event.ID))
	assert.Equal(t, domain.StatusPending, event.Status)

	pending, err := repo.List(ctx, domain.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.MarkAttempt(ctx, event.ID, "timeout", 2))
	got, err := repo.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, "timeout", got.LastError)

	require.NoError(t, repo.MarkAttempt(ctx, event.ID, "timeout again", 2))
	got, err = repo.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, domain.StatusFailed, got.Status)

	require.NoError(t, repo.MarkResolved(ctx, event.ID))
	got, err = repo.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, got.Status)
	assert.NotNil(t, got.ResolvedAt)

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	err = repo.MarkResolved(ctx, "rec_missing")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestReconciliationRepository_SurvivesRollback(t *testing.T) {
	db := newTestDB(t)
	images := NewImageRepository(db)
	events := NewReconciliationRepository(db)
	ctx := context.Background()

	_ = db.RunInTx(ctx, func(ctx context.Context) error {
		if err := images.Create(ctx, newImage("", 0)); err != nil {
			return err
		}
		return fmt.Errorf("row insert aborted")
	})

	// Recorded after the transaction ended, as the upload path does.
	require.NoError(t, events.Record(ctx, &domain.ReconciliationEvent{
		Kind: domain.KindOrphanBlob, Category: "image", Bucket: "images", Key: "k.jpg",
	}))
	list, err := events.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

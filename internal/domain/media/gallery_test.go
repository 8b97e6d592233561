package media_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/utils/platformerrors"
)

func TestGalleryMove_ShiftsIntermediatePositions(t *testing.T) {
	h := newHarness(t)
	ids := h.uploadGalleryImages(t, "g1", 5)

	list, err := h.gallery.Move(context.Background(), "g1", ids[3], 0)
	require.NoError(t, err)
	require.Len(t, list, 5)

	want := []string{ids[3], ids[0], ids[1], ids[2], ids[4]}
	assert.Equal(t, want, h.galleryOrder(t, "g1"))
	for i, img := range list {
		assert.Equal(t, want[i], img.ID)
		assert.Equal(t, i, img.Order)
	}
}

func TestGalleryMove_Forward(t *testing.T) {
	h := newHarness(t)
	ids := h.uploadGalleryImages(t, "g1", 4)

	_, err := h.gallery.Move(context.Background(), "g1", ids[0], 3)
	require.NoError(t, err)

	assert.Equal(t, []string{ids[1], ids[2], ids[3], ids[0]}, h.galleryOrder(t, "g1"))
}

func TestGalleryMove_Invalid(t *testing.T) {
	h := newHarness(t)
	ids := h.uploadGalleryImages(t, "g1", 2)
	ctx := context.Background()

	_, err := h.gallery.Move(ctx, "g1", ids[0], 2)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = h.gallery.Move(ctx, "g1", "img_missing", 0)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, err = h.gallery.Move(ctx, "", ids[0], 0)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	assert.Equal(t, ids, h.galleryOrder(t, "g1"))
}

func TestGalleryReorder(t *testing.T) {
	h := newHarness(t)
	ids := h.uploadGalleryImages(t, "g1", 4)
	ctx := context.Background()

	reversed := []string{ids[3], ids[2], ids[1], ids[0]}
	_, err := h.gallery.Reorder(ctx, "g1", reversed)
	require.NoError(t, err)
	assert.Equal(t, reversed, h.galleryOrder(t, "g1"))

	_, err = h.gallery.Reorder(ctx, "g1", ids[:3])
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))

	_, err = h.gallery.Reorder(ctx, "g1", []string{ids[0], ids[0], ids[1], ids[2]})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))

	assert.Equal(t, reversed, h.galleryOrder(t, "g1"))
}

func TestGalleryConcurrentMovesKeepPermutation(t *testing.T) {
	h := newHarness(t)
	ids := h.uploadGalleryImages(t, "g1", 5)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.gallery.Move(context.Background(), "g1", ids[i%5], (i*3)%5)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	order := h.galleryOrder(t, "g1")
	assert.ElementsMatch(t, ids, order)
}

func TestDeleteGallery_RemovesRowsAndBlobs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ids := h.uploadGalleryImages(t, "g1", 3)
	other := h.uploadGalleryImages(t, "g2", 1)

	images, err := h.images.FindByIDs(ctx, ids)
	require.NoError(t, err)

	count, err := h.gallery.DeleteGallery(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	for _, img := range images {
		exists, err := h.store.Exists(ctx, img.BucketName, img.Key)
		require.NoError(t, err)
		assert.False(t, exists)
	}
	assert.Empty(t, h.galleryOrder(t, "g1"))
	assert.Equal(t, other, h.galleryOrder(t, "g2"))
}

func TestDeleteGallery_BlobFailuresAreQueued(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.uploadGalleryImages(t, "g1", 2)
	h.store.setDeleteErr(errors.New("store unavailable"))

	count, err := h.gallery.DeleteGallery(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	events, err := h.events.List(ctx, media.StatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	for _, event := range events {
		assert.Equal(t, media.KindOrphanBlob, event.Kind)
	}
}

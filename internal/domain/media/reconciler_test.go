package media_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/utils/platformerrors"
	"jan-server/services/media-storage/utils/mediaid"
)

func TestReconciler_RemovesOrphanBlob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.ObjectStore.Put(ctx, "images", "uploads/orphan.jpg", []byte("x"), "image/jpeg"))
	require.NoError(t, h.events.Record(ctx, &media.ReconciliationEvent{
		Kind: media.KindOrphanBlob, Category: "image", Bucket: "images", Key: "uploads/orphan.jpg",
	}))

	resolved, err := h.reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	exists, err := h.store.Exists(ctx, "images", "uploads/orphan.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	pending, err := h.reconciler.List(ctx, media.StatusPending, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReconciler_KeepsReferencedBlob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.service.UploadImage(ctx, media.UploadFile{Data: solidJPEG(t, 32, 32), Filename: "a.jpg"}, media.ImageUploadOptions{})
	require.NoError(t, err)
	require.NoError(t, h.events.Record(ctx, &media.ReconciliationEvent{
		Kind: media.KindOrphanBlob, Category: "image", Bucket: res.BucketName, Key: res.Key,
	}))

	resolved, err := h.reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	exists, err := h.store.Exists(ctx, res.BucketName, res.Key)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReconciler_RemovesDanglingRow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	audio := &media.AudioFile{FileRecord: media.FileRecord{
		ID:           mediaid.New(mediaid.PrefixAudio),
		Filename:     "gone.wav",
		OriginalName: "gone.wav",
		MimeType:     "audio/wav",
		Filesize:     10,
		BucketName:   "audio",
		Key:          "uploads/gone.wav",
		URL:          media.PrivateURLScheme + "audio/uploads/gone.wav",
	}}
	require.NoError(t, h.audio.Create(ctx, audio))
	require.NoError(t, h.events.Record(ctx, &media.ReconciliationEvent{
		Kind: media.KindDanglingRow, Category: "audio", Bucket: "audio", Key: audio.Key, RecordID: audio.ID,
	}))

	resolved, err := h.reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	_, err = h.audio.FindByID(ctx, audio.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestReconciler_GivesUpAfterMaxAttempts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	event := &media.ReconciliationEvent{Kind: media.KindOrphanBlob, Category: "image", Bucket: "images", Key: "uploads/stuck.jpg"}
	require.NoError(t, h.events.Record(ctx, event))
	h.store.setDeleteErr(errors.New("store unavailable"))

	for i := 0; i < 2; i++ {
		resolved, err := h.reconciler.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, resolved)
	}

	failed, err := h.reconciler.List(ctx, media.StatusFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].Attempts)
	assert.Equal(t, "store unavailable", failed[0].LastError)

	resolved, err := h.reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, resolved)
}

func TestReconciler_ManualResolve(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	event := &media.ReconciliationEvent{Kind: media.KindOrphanBlob, Category: "image", Bucket: "images", Key: "uploads/x.jpg"}
	require.NoError(t, h.events.Record(ctx, event))

	got, err := h.reconciler.Resolve(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, media.StatusResolved, got.Status)

	_, err = h.reconciler.Resolve(ctx, "rec_missing")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, err = h.reconciler.List(ctx, "bogus", 10)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestReconciler_DanglingGalleryImageKeepsOrderDense(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ids := h.uploadGalleryImages(t, "g1", 3)

	middle, err := h.images.FindByID(ctx, ids[1])
	require.NoError(t, err)
	require.NoError(t, h.store.ObjectStore.Delete(ctx, middle.BucketName, middle.Key))
	require.NoError(t, h.events.Record(ctx, &media.ReconciliationEvent{
		Kind: media.KindDanglingRow, Category: "image", Bucket: middle.BucketName, Key: middle.Key, RecordID: middle.ID,
	}))

	resolved, err := h.reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, []string{ids[0], ids[2]}, h.galleryOrder(t, "g1"))

	appended := h.uploadGalleryImages(t, "g1", 1)
	assert.Equal(t, []string{ids[0], ids[2], appended[0]}, h.galleryOrder(t, "g1"))
}

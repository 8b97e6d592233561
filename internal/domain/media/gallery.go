package media

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/infrastructure/metrics"
)

// GalleryService keeps image order within a gallery a contiguous 0..n-1 permutation.
// Every multi-row write runs in one transaction under the gallery lock.
type GalleryService struct {
	images     ImageRepository
	store      ObjectStore
	tx         Transactor
	locker     Locker
	divergence divergenceLog
	log        zerolog.Logger
}

func NewGalleryService(
	images ImageRepository,
	store ObjectStore,
	events ReconciliationRepository,
	tx Transactor,
	locker Locker,
	log zerolog.Logger,
) *GalleryService {
	return &GalleryService{
		images:     images,
		store:      store,
		tx:         tx,
		locker:     locker,
		divergence: newDivergenceLog(events, log),
		log:        log.With().Str("component", "gallery").Logger(),
	}
}

// List returns the gallery ordered by position.
func (g *GalleryService) List(ctx context.Context, galleryID string) ([]*Image, error) {
	return g.images.ListByGallery(ctx, galleryID)
}

// Move places imageID at position; the images in between shift by one.
func (g *GalleryService) Move(ctx context.Context, galleryID, imageID string, position int) ([]*Image, error) {
	var result []*Image
	err := g.inGallery(ctx, galleryID, func(ctx context.Context) error {
		current, err := g.images.ListByGallery(ctx, galleryID)
		if err != nil {
			return err
		}
		from := -1
		for i, img := range current {
			if img.ID == imageID {
				from = i
				break
			}
		}
		if from < 0 {
			return notFound(ctx, "image not found in gallery", "3e7a1c5d-9b2f-4d8e-a6c1-7f4b2e9d3a01")
		}
		if position < 0 || position >= len(current) {
			return validationError(ctx,
				fmt.Sprintf("position must be between 0 and %d", len(current)-1),
				"3e7a1c5d-9b2f-4d8e-a6c1-7f4b2e9d3a02")
		}

		moved := current[from]
		ordered := make([]*Image, 0, len(current))
		ordered = append(ordered, current[:from]...)
		ordered = append(ordered, current[from+1:]...)
		ordered = append(ordered[:position], append([]*Image{moved}, ordered[position:]...)...)

		result, err = g.apply(ctx, galleryID, ordered)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reorder sets the full gallery order. orderedIDs must name every gallery image exactly once.
func (g *GalleryService) Reorder(ctx context.Context, galleryID string, orderedIDs []string) ([]*Image, error) {
	var result []*Image
	err := g.inGallery(ctx, galleryID, func(ctx context.Context) error {
		current, err := g.images.ListByGallery(ctx, galleryID)
		if err != nil {
			return err
		}
		if len(orderedIDs) != len(current) {
			return conflict(ctx,
				fmt.Sprintf("expected %d image ids, got %d", len(current), len(orderedIDs)),
				"3e7a1c5d-9b2f-4d8e-a6c1-7f4b2e9d3a03")
		}

		byID := make(map[string]*Image, len(current))
		for _, img := range current {
			byID[img.ID] = img
		}
		ordered := make([]*Image, 0, len(orderedIDs))
		for _, id := range orderedIDs {
			img, ok := byID[id]
			if !ok {
				return conflict(ctx,
					fmt.Sprintf("image %s is not in the gallery or is listed twice", id),
					"3e7a1c5d-9b2f-4d8e-a6c1-7f4b2e9d3a04")
			}
			delete(byID, id)
			ordered = append(ordered, img)
		}

		result, err = g.apply(ctx, galleryID, ordered)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteGallery removes every image row in one transaction and then the blobs.
// Blobs that cannot be removed are queued for reconciliation.
func (g *GalleryService) DeleteGallery(ctx context.Context, galleryID string) (int64, error) {
	var (
		removed []*Image
		count   int64
	)
	err := g.inGallery(ctx, galleryID, func(ctx context.Context) error {
		images, err := g.images.ListByGallery(ctx, galleryID)
		if err != nil {
			return err
		}
		count, err = g.images.DeleteByGallery(ctx, galleryID)
		if err != nil {
			return err
		}
		removed = images
		return nil
	})
	if err != nil {
		return 0, err
	}

	cleanupCtx := context.WithoutCancel(ctx)
	for _, img := range removed {
		if err := g.store.Delete(cleanupCtx, img.BucketName, img.Key); err != nil {
			g.divergence.record(cleanupCtx, KindOrphanBlob, config.CategoryImage, img.BucketName, img.Key, img.ID, "gallery blob cleanup failed", err)
			continue
		}
		metrics.RecordDelete(config.CategoryImage)
	}
	g.log.Info().Str("gallery_id", galleryID).Int64("images", count).Msg("gallery deleted")
	return count, nil
}

func (g *GalleryService) inGallery(ctx context.Context, galleryID string, fn func(ctx context.Context) error) error {
	if galleryID == "" {
		return validationError(ctx, "gallery id is required", "3e7a1c5d-9b2f-4d8e-a6c1-7f4b2e9d3a05")
	}
	return g.locker.WithLock(ctx, galleryLockName(galleryID), func(ctx context.Context) error {
		return g.tx.RunInTx(ctx, fn)
	})
}

// apply writes the positions of ordered and returns the gallery as stored.
func (g *GalleryService) apply(ctx context.Context, galleryID string, ordered []*Image) ([]*Image, error) {
	orders := make(map[string]int)
	for i, img := range ordered {
		if img.Order != i {
			orders[img.ID] = i
		}
	}
	if err := g.images.UpdateOrders(ctx, orders); err != nil {
		return nil, err
	}
	return g.images.ListByGallery(ctx, galleryID)
}

// compactGallery renumbers the gallery to 0..n-1 after a removal. Caller holds the lock and transaction.
func compactGallery(ctx context.Context, images ImageRepository, galleryID string) error {
	remaining, err := images.ListByGallery(ctx, galleryID)
	if err != nil {
		return err
	}
	orders := make(map[string]int)
	for i, img := range remaining {
		if img.Order != i {
			orders[img.ID] = i
		}
	}
	return images.UpdateOrders(ctx, orders)
}

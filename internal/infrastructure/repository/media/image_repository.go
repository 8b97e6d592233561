package media

import (
	"context"

	"gorm.io/gorm"

	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/infrastructure/database/entities"
	"jan-server/services/media-storage/internal/infrastructure/database/transaction"
)

// ImageRepository handles image persistence. Every call joins the ambient transaction.
type ImageRepository struct {
	db *transaction.Database
}

func NewImageRepository(db *transaction.Database) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Create(ctx context.Context, img *domain.Image) error {
	entity := imageToEntity(img)
	if err := r.db.GetTx(ctx).WithContext(ctx).Create(&entity).Error; err != nil {
		return dbError(ctx, "failed to create image", err, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c01")
	}
	img.CreatedAt = entity.CreatedAt
	img.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *ImageRepository) FindByID(ctx context.Context, id string) (*domain.Image, error) {
	var entity entities.Image
	err := r.db.GetTx(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if isRecordNotFound(err) {
			return nil, notFound(ctx, "image not found", err, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c02")
		}
		return nil, dbError(ctx, "failed to get image by id", err, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c03")
	}
	return imageFromEntity(entity), nil
}

func (r *ImageRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Image, error) {
	if len(ids) == 0 {
		return []*domain.Image{}, nil
	}
	var rows []entities.Image
	if err := r.db.GetTx(ctx).WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, dbError(ctx, "failed to list images by id", err, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c04")
	}
	images := make([]*domain.Image, 0, len(rows))
	for _, row := range rows {
		images = append(images, imageFromEntity(row))
	}
	return orderByIDs(ids, images, func(img *domain.Image) string { return img.ID }), nil
}

func (r *ImageRepository) ExistsByKey(ctx context.Context, bucket, key string) (bool, error) {
	exists, err := existsByKey(ctx, r.db.GetTx(ctx), &entities.Image{}, bucket, key)
	if err != nil {
		return false, dbError(ctx, "failed to look up image key", err, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c05")
	}
	return exists, nil
}

func (r *ImageRepository) ListByGallery(ctx context.Context, galleryID string) ([]*domain.Image, error) {
	var rows []entities.Image
	err := r.db.GetTx(ctx).WithContext(ctx).
		Where("gallery_id = ?", galleryID).
		Order("sort_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, dbError(ctx, "failed to list gallery images", err, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c06")
	}
	images := make([]*domain.Image, 0, len(rows))
	for _, row := range rows {
		images = append(images, imageFromEntity(row))
	}
	return images, nil
}

func (r *ImageRepository) CountByGallery(ctx context.Context, galleryID string) (int64, error) {
	var count int64
	err := r.db.GetTx(ctx).WithContext(ctx).
		Model(&entities.Image{}).
		Where("gallery_id = ?", galleryID).
		Count(&count).Error
	if err != nil {
		return 0, dbError(ctx, "failed to count gallery images", err, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c07")
	}
	return count, nil
}

func (r *ImageRepository) UpdateOrder(ctx context.Context, id string, order int) error {
	result := r.db.GetTx(ctx).WithContext(ctx).
		Model(&entities.Image{}).
		Where("id = ?", id).
		Update("sort_order", order)
	if result.Error != nil {
		return dbError(ctx, "failed to update image order", result.Error, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c08")
	}
	if result.RowsAffected == 0 {
		return notFound(ctx, "image not found", nil, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c09")
	}
	return nil
}

// UpdateOrders applies a batch of order changes atomically. Rows are parked on
// negative values first so the (gallery_id, sort_order) index never sees a duplicate.
func (r *ImageRepository) UpdateOrders(ctx context.Context, orders map[string]int) error {
	if len(orders) == 0 {
		return nil
	}
	err := r.db.GetTx(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parked := -1
		for id := range orders {
			result := tx.Model(&entities.Image{}).Where("id = ?", id).Update("sort_order", parked)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			parked--
		}
		for id, order := range orders {
			if err := tx.Model(&entities.Image{}).Where("id = ?", id).Update("sort_order", order).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isRecordNotFound(err) {
			return notFound(ctx, "image not found", err, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c10")
		}
		return dbError(ctx, "failed to reorder images", err, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c11")
	}
	return nil
}

func (r *ImageRepository) Delete(ctx context.Context, id string) error {
	result := r.db.GetTx(ctx).WithContext(ctx).Where("id = ?", id).Delete(&entities.Image{})
	if result.Error != nil {
		return dbError(ctx, "failed to delete image", result.Error, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c12")
	}
	if result.RowsAffected == 0 {
		return notFound(ctx, "image not found", nil, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c13")
	}
	return nil
}

func (r *ImageRepository) DeleteByGallery(ctx context.Context, galleryID string) (int64, error) {
	result := r.db.GetTx(ctx).WithContext(ctx).Where("gallery_id = ?", galleryID).Delete(&entities.Image{})
	if result.Error != nil {
		return 0, dbError(ctx, "failed to delete gallery images", result.Error, "b1a2c3d4-1e2f-4a3b-8c4d-5e6f7a8b9c14")
	}
	return result.RowsAffected, nil
}

package media

import (
	"context"

	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/infrastructure/database/entities"
	"jan-server/services/media-storage/internal/infrastructure/database/transaction"
)

// DownloadRepository handles download persistence.
type DownloadRepository struct {
	db *transaction.Database
}

func NewDownloadRepository(db *transaction.Database) *DownloadRepository {
	return &DownloadRepository{db: db}
}

func (r *DownloadRepository) Create(ctx context.Context, file *domain.DownloadFile) error {
	entity := downloadToEntity(file)
	if err := r.db.GetTx(ctx).WithContext(ctx).Create(&entity).Error; err != nil {
		return dbError(ctx, "failed to create download file", err, "d3c4e5f6-3a4b-4c5d-8e6f-7a8b9c0d1e01")
	}
	file.CreatedAt = entity.CreatedAt
	file.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *DownloadRepository) FindByID(ctx context.Context, id string) (*domain.DownloadFile, error) {
	var entity entities.DownloadFile
	err := r.db.GetTx(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if isRecordNotFound(err) {
			return nil, notFound(ctx, "download not found", err, "d3c4e5f6-3a4b-4c5d-8e6f-7a8b9c0d1e02")
		}
		return nil, dbError(ctx, "failed to get download by id", err, "d3c4e5f6-3a4b-4c5d-8e6f-7a8b9c0d1e03")
	}
	return downloadFromEntity(entity), nil
}

func (r *DownloadRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.DownloadFile, error) {
	if len(ids) == 0 {
		return []*domain.DownloadFile{}, nil
	}
	var rows []entities.DownloadFile
	if err := r.db.GetTx(ctx).WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, dbError(ctx, "failed to list downloads by id", err, "d3c4e5f6-3a4b-4c5d-8e6f-7a8b9c0d1e04")
	}
	files := make([]*domain.DownloadFile, 0, len(rows))
	for _, row := range rows {
		files = append(files, downloadFromEntity(row))
	}
	return orderByIDs(ids, files, func(d *domain.DownloadFile) string { return d.ID }), nil
}

func (r *DownloadRepository) ExistsByKey(ctx context.Context, bucket, key string) (bool, error) {
	exists, err := existsByKey(ctx, r.db.GetTx(ctx), &entities.DownloadFile{}, bucket, key)
	if err != nil {
		return false, dbError(ctx, "failed to look up download key", err, "d3c4e5f6-3a4b-4c5d-8e6f-7a8b9c0d1e05")
	}
	return exists, nil
}

func (r *DownloadRepository) Delete(ctx context.Context, id string) error {
	result := r.db.GetTx(ctx).WithContext(ctx).Where("id = ?", id).Delete(&entities.DownloadFile{})
	if result.Error != nil {
		return dbError(ctx, "failed to delete download", result.Error, "d3c4e5f6-3a4b-4c5d-8e6f-7a8b9c0d1e06")
	}
	if result.RowsAffected == 0 {
		return notFound(ctx, "download not found", nil, "d3c4e5f6-3a4b-4c5d-8e6f-7a8b9c0d1e07")
	}
	return nil
}

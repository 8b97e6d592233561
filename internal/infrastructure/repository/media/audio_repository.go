package media

import (
	"context"

	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/infrastructure/database/entities"
	"jan-server/services/media-storage/internal/infrastructure/database/transaction"
)

// AudioRepository handles audio persistence.
type AudioRepository struct {
	db *transaction.Database
}

func NewAudioRepository(db *transaction.Database) *AudioRepository {
	return &AudioRepository{db: db}
}

func (r *AudioRepository) Create(ctx context.Context, audio *domain.AudioFile) error {
	entity := audioToEntity(audio)
	if err := r.db.GetTx(ctx).WithContext(ctx).Create(&entity).Error; err != nil {
		return dbError(ctx, "failed to create audio file", err, "c2b3d4e5-2f3a-4b4c-9d5e-6f7a8b9c0d01")
	}
	audio.CreatedAt = entity.CreatedAt
	audio.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *AudioRepository) FindByID(ctx context.Context, id string) (*domain.AudioFile, error) {
	var entity entities.AudioFile
	err := r.db.GetTx(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if isRecordNotFound(err) {
			return nil, notFound(ctx, "audio file not found", err, "c2b3d4e5-2f3a-4b4c-9d5e-6f7a8b9c0d02")
		}
		return nil, dbError(ctx, "failed to get audio file by id", err, "c2b3d4e5-2f3a-4b4c-9d5e-6f7a8b9c0d03")
	}
	return audioFromEntity(entity), nil
}

func (r *AudioRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.AudioFile, error) {
	if len(ids) == 0 {
		return []*domain.AudioFile{}, nil
	}
	var rows []entities.AudioFile
	if err := r.db.GetTx(ctx).WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, dbError(ctx, "failed to list audio files by id", err, "c2b3d4e5-2f3a-4b4c-9d5e-6f7a8b9c0d04")
	}
	files := make([]*domain.AudioFile, 0, len(rows))
	for _, row := range rows {
		files = append(files, audioFromEntity(row))
	}
	return orderByIDs(ids, files, func(a *domain.AudioFile) string { return a.ID }), nil
}

func (r *AudioRepository) ExistsByKey(ctx context.Context, bucket, key string) (bool, error) {
	exists, err := existsByKey(ctx, r.db.GetTx(ctx), &entities.AudioFile{}, bucket, key)
	if err != nil {
		return false, dbError(ctx, "failed to look up audio key", err, "c2b3d4e5-2f3a-4b4c-9d5e-6f7a8b9c0d05")
	}
	return exists, nil
}

func (r *AudioRepository) Delete(ctx context.Context, id string) error {
	result := r.db.GetTx(ctx).WithContext(ctx).Where("id = ?", id).Delete(&entities.AudioFile{})
	if result.Error != nil {
		return dbError(ctx, "failed to delete audio file", result.Error, "c2b3d4e5-2f3a-4b4c-9d5e-6f7a8b9c0d06")
	}
	if result.RowsAffected == 0 {
		return notFound(ctx, "audio file not found", nil, "c2b3d4e5-2f3a-4b4c-9d5e-6f7a8b9c0d07")
	}
	return nil
}

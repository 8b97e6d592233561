package media

import (
	"context"
	"errors"

	"gorm.io/gorm"

	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/infrastructure/database/entities"
	"jan-server/services/media-storage/internal/utils/platformerrors"
)

func dbError(ctx context.Context, message string, err error, code string) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeDatabaseError,
		message,
		err,
		code,
	)
}

func notFound(ctx context.Context, message string, err error, code string) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound,
		message,
		err,
		code,
	)
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func existsByKey(ctx context.Context, db *gorm.DB, model any, bucket, key string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(model).
		Where("bucket_name = ? AND object_key = ?", bucket, key).
		Count(&count).Error
	return count > 0, err
}

// orderByIDs returns items in the order of ids, skipping ids with no row.
func orderByIDs[T any](ids []string, items []T, idOf func(T) string) []T {
	byID := make(map[string]T, len(items))
	for _, item := range items {
		byID[idOf(item)] = item
	}
	out := make([]T, 0, len(items))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			out = append(out, item)
			delete(byID, id)
		}
	}
	return out
}

func imageToEntity(img *domain.Image) entities.Image {
	return entities.Image{
		ID:           img.ID,
		Filename:     img.Filename,
		OriginalName: img.OriginalName,
		MimeType:     img.MimeType,
		Filesize:     img.Filesize,
		BucketName:   img.BucketName,
		ObjectKey:    img.Key,
		URL:          img.URL,
		Width:        img.Width,
		Height:       img.Height,
		SortOrder:    img.Order,
		GalleryID:    img.GalleryID,
		Alt:          img.Alt,
	}
}

func imageFromEntity(e entities.Image) *domain.Image {
	return &domain.Image{
		FileRecord: domain.FileRecord{
			ID:           e.ID,
			Filename:     e.Filename,
			OriginalName: e.OriginalName,
			MimeType:     e.MimeType,
			Filesize:     e.Filesize,
			BucketName:   e.BucketName,
			Key:          e.ObjectKey,
			URL:          e.URL,
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    e.UpdatedAt,
		},
		Width:     e.Width,
		Height:    e.Height,
		Order:     e.SortOrder,
		GalleryID: e.GalleryID,
		Alt:       e.Alt,
	}
}

func audioToEntity(a *domain.AudioFile) entities.AudioFile {
	return entities.AudioFile{
		ID:           a.ID,
		Filename:     a.Filename,
		OriginalName: a.OriginalName,
		MimeType:     a.MimeType,
		Filesize:     a.Filesize,
		BucketName:   a.BucketName,
		ObjectKey:    a.Key,
		URL:          a.URL,
		Duration:     a.Duration,
		Bitrate:      a.Bitrate,
		SampleRate:   a.SampleRate,
		Format:       a.Format,
		IsPublic:     a.IsPublic,
	}
}

func audioFromEntity(e entities.AudioFile) *domain.AudioFile {
	return &domain.AudioFile{
		FileRecord: domain.FileRecord{
			ID:           e.ID,
			Filename:     e.Filename,
			OriginalName: e.OriginalName,
			MimeType:     e.MimeType,
			Filesize:     e.Filesize,
			BucketName:   e.BucketName,
			Key:          e.ObjectKey,
			URL:          e.URL,
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    e.UpdatedAt,
		},
		Duration:   e.Duration,
		Bitrate:    e.Bitrate,
		SampleRate: e.SampleRate,
		Format:     e.Format,
		IsPublic:   e.IsPublic,
	}
}

func downloadToEntity(d *domain.DownloadFile) entities.DownloadFile {
	return entities.DownloadFile{
		ID:           d.ID,
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		MimeType:     d.MimeType,
		Filesize:     d.Filesize,
		BucketName:   d.BucketName,
		ObjectKey:    d.Key,
		URL:          d.URL,
	}
}

func downloadFromEntity(e entities.DownloadFile) *domain.DownloadFile {
	return &domain.DownloadFile{
		FileRecord: domain.FileRecord{
			ID:           e.ID,
			Filename:     e.Filename,
			OriginalName: e.OriginalName,
			MimeType:     e.MimeType,
			Filesize:     e.Filesize,
			BucketName:   e.BucketName,
			Key:          e.ObjectKey,
			URL:          e.URL,
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    e.UpdatedAt,
		},
	}
}

func eventToEntity(ev *domain.ReconciliationEvent) entities.ReconciliationEvent {
	return entities.ReconciliationEvent{
		ID:         ev.ID,
		Kind:       ev.Kind,
		Category:   ev.Category,
		Bucket:     ev.Bucket,
		ObjectKey:  ev.Key,
		RecordID:   ev.RecordID,
		Reason:     ev.Reason,
		Status:     ev.Status,
		Attempts:   ev.Attempts,
		LastError:  ev.LastError,
		ResolvedAt: ev.ResolvedAt,
	}
}

func eventFromEntity(e entities.ReconciliationEvent) *domain.ReconciliationEvent {
	return &domain.ReconciliationEvent{
		ID:         e.ID,
		Kind:       e.Kind,
		Category:   e.Category,
		Bucket:     e.Bucket,
		Key:        e.ObjectKey,
		RecordID:   e.RecordID,
		Reason:     e.Reason,
		Status:     e.Status,
		Attempts:   e.Attempts,
		LastError:  e.LastError,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
		ResolvedAt: e.ResolvedAt,
	}
}

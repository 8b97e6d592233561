package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/domain/transcode"
	"jan-server/services/media-storage/internal/domain/validation"
	"jan-server/services/media-storage/internal/infrastructure/metrics"
	"jan-server/services/media-storage/utils/mediaid"
)

const defaultFolder = "uploads"

var folderSegmentPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var outputExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Service orchestrates uploads: every row is written after its blob, and a blob
// whose row could not be written is removed again or logged for reconciliation.
type Service struct {
	cfg        *config.Config
	store      ObjectStore
	images     ImageRepository
	audio      AudioRepository
	downloads  DownloadRepository
	divergence divergenceLog
	tx         Transactor
	locker     Locker
	transcoder *transcode.ImageTranscoder
	log        zerolog.Logger
}

func NewService(
	cfg *config.Config,
	store ObjectStore,
	images ImageRepository,
	audio AudioRepository,
	downloads DownloadRepository,
	events ReconciliationRepository,
	tx Transactor,
	locker Locker,
	transcoder *transcode.ImageTranscoder,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:        cfg,
		store:      store,
		images:     images,
		audio:      audio,
		downloads:  downloads,
		divergence: newDivergenceLog(events, log),
		tx:         tx,
		locker:     locker,
		transcoder: transcoder,
		log:        log.With().Str("component", "upload-orchestrator").Logger(),
	}
}

// UploadImage validates, compresses and stores an image. With a gallery id the
// image is appended to the end of the gallery.
func (s *Service) UploadImage(ctx context.Context, file UploadFile, opts ImageUploadOptions) (*UploadResult, error) {
	img, compressed, err := s.storeImage(ctx, file, opts)
	if err != nil {
		return nil, err
	}

	if opts.GalleryID != "" {
		galleryID := opts.GalleryID
		img.GalleryID = &galleryID
		err = s.locker.WithLock(ctx, galleryLockName(galleryID), func(ctx context.Context) error {
			return s.tx.RunInTx(ctx, func(ctx context.Context) error {
				count, err := s.images.CountByGallery(ctx, galleryID)
				if err != nil {
					return err
				}
				img.Order = int(count)
				return s.images.Create(ctx, img)
			})
		})
	} else {
		err = s.images.Create(ctx, img)
	}
	if err != nil {
		s.compensate(ctx, config.CategoryImage, img.BucketName, img.Key, "catalog insert failed", err)
		metrics.RecordUpload(config.CategoryImage, "failed", 0)
		return nil, err
	}

	metrics.RecordUpload(config.CategoryImage, "success", img.Filesize)
	s.log.Info().
		Str("id", img.ID).
		Str("key", img.Key).
		Int64("original_size", compressed.OriginalSize).
		Int64("stored_size", img.Filesize).
		Msg("image uploaded")
	return resultFromRecord(img.FileRecord, imageMetadata(img, compressed)), nil
}

// UploadAudio validates and stores a track along with its technical metadata.
func (s *Service) UploadAudio(ctx context.Context, file UploadFile, opts AudioUploadOptions) (*UploadResult, error) {
	audio, meta, err := s.storeAudio(ctx, file, opts)
	if err != nil {
		return nil, err
	}

	if err := s.audio.Create(ctx, audio); err != nil {
		s.compensate(ctx, config.CategoryAudio, audio.BucketName, audio.Key, "catalog insert failed", err)
		metrics.RecordUpload(config.CategoryAudio, "failed", 0)
		return nil, err
	}

	metrics.RecordUpload(config.CategoryAudio, "success", audio.Filesize)
	s.log.Info().Str("id", audio.ID).Str("key", audio.Key).Bool("public", audio.IsPublic).Msg("audio uploaded")
	return resultFromRecord(audio.FileRecord, audioMetadata(audio, meta)), nil
}

// UploadDownload validates and stores a gated deliverable.
func (s *Service) UploadDownload(ctx context.Context, file UploadFile, opts DownloadUploadOptions) (*UploadResult, error) {
	validated, err := s.validate(ctx, file, config.CategoryDownload)
	if err != nil {
		return nil, err
	}

	bucket := s.cfg.DownloadBucket
	filename, err := mintFilename(validated.Extension)
	if err != nil {
		return nil, err
	}
	key := objectKey(opts.Folder, filename)
	if err := s.store.Put(ctx, bucket, key, validated.Data, validated.MimeType); err != nil {
		metrics.RecordUpload(config.CategoryDownload, "failed", 0)
		return nil, err
	}

	download := &DownloadFile{FileRecord: FileRecord{
		ID:           mediaid.New(mediaid.PrefixDownload),
		Filename:     filename,
		OriginalName: validated.OriginalName,
		MimeType:     validated.MimeType,
		Filesize:     validated.Size,
		BucketName:   bucket,
		Key:          key,
		URL:          privateURL(bucket, key),
	}}
	if err := s.downloads.Create(ctx, download); err != nil {
		s.compensate(ctx, config.CategoryDownload, bucket, key, "catalog insert failed", err)
		metrics.RecordUpload(config.CategoryDownload, "failed", 0)
		return nil, err
	}

	metrics.RecordUpload(config.CategoryDownload, "success", download.Filesize)
	s.log.Info().Str("id", download.ID).Str("key", key).Msg("download uploaded")
	return resultFromRecord(download.FileRecord, nil), nil
}

// ReplaceImage stores the new blob first, then swaps the row in one transaction.
// The id, gallery and order survive; the old blob is removed after commit.
func (s *Service) ReplaceImage(ctx context.Context, id string, file UploadFile, opts ImageUploadOptions) (*UploadResult, error) {
	existing, err := s.images.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if opts.Folder == "" {
		opts.Folder = path.Dir(existing.Key)
	}

	img, compressed, err := s.storeImage(ctx, file, opts)
	if err != nil {
		return nil, err
	}
	img.ID = existing.ID

	var previous *Image
	err = s.withGalleryLock(ctx, existing.GalleryID, func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(ctx context.Context) error {
			current, err := s.images.FindByID(ctx, id)
			if err != nil {
				return err
			}
			img.GalleryID = current.GalleryID
			img.Order = current.Order
			if img.Alt == "" {
				img.Alt = current.Alt
			}
			if err := s.images.Delete(ctx, id); err != nil {
				return err
			}
			if err := s.images.Create(ctx, img); err != nil {
				return err
			}
			previous = current
			return nil
		})
	})
	if err != nil {
		s.compensate(ctx, config.CategoryImage, img.BucketName, img.Key, "catalog replace failed", err)
		metrics.RecordUpload(config.CategoryImage, "failed", 0)
		return nil, err
	}

	metrics.RecordUpload(config.CategoryImage, "success", img.Filesize)
	s.removeReplaced(ctx, config.CategoryImage, previous.BucketName, previous.Key)
	return resultFromRecord(img.FileRecord, imageMetadata(img, compressed)), nil
}

// ReplaceAudio swaps a track for a new upload keeping its id. Visibility comes from opts.
func (s *Service) ReplaceAudio(ctx context.Context, id string, file UploadFile, opts AudioUploadOptions) (*UploadResult, error) {
	existing, err := s.audio.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if opts.Folder == "" {
		opts.Folder = path.Dir(existing.Key)
	}

	audio, meta, err := s.storeAudio(ctx, file, opts)
	if err != nil {
		return nil, err
	}
	audio.ID = existing.ID

	var previous *AudioFile
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.audio.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.audio.Delete(ctx, id); err != nil {
			return err
		}
		if err := s.audio.Create(ctx, audio); err != nil {
			return err
		}
		previous = current
		return nil
	})
	if err != nil {
		s.compensate(ctx, config.CategoryAudio, audio.BucketName, audio.Key, "catalog replace failed", err)
		metrics.RecordUpload(config.CategoryAudio, "failed", 0)
		return nil, err
	}

	metrics.RecordUpload(config.CategoryAudio, "success", audio.Filesize)
	s.removeReplaced(ctx, config.CategoryAudio, previous.BucketName, previous.Key)
	return resultFromRecord(audio.FileRecord, audioMetadata(audio, meta)), nil
}

// DeleteImage removes the row and its blob together. Remaining gallery images are compacted.
func (s *Service) DeleteImage(ctx context.Context, id string) error {
	img, err := s.images.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.withGalleryLock(ctx, img.GalleryID, func(ctx context.Context) error {
		return s.deleteRecord(ctx, config.CategoryImage, img.FileRecord, func(ctx context.Context) error {
			if err := s.images.Delete(ctx, id); err != nil {
				return err
			}
			if img.GalleryID != nil {
				return compactGallery(ctx, s.images, *img.GalleryID)
			}
			return nil
		})
	})
}

func (s *Service) DeleteAudio(ctx context.Context, id string) error {
	audio, err := s.audio.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteRecord(ctx, config.CategoryAudio, audio.FileRecord, func(ctx context.Context) error {
		return s.audio.Delete(ctx, id)
	})
}

func (s *Service) DeleteDownload(ctx context.Context, id string) error {
	download, err := s.downloads.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteRecord(ctx, config.CategoryDownload, download.FileRecord, func(ctx context.Context) error {
		return s.downloads.Delete(ctx, id)
	})
}

// PresignUpload grants a direct-to-store upload. Only the name and declared type
// can be checked because the content never passes through the service.
func (s *Service) PresignUpload(ctx context.Context, fileType, filename, mimeType string) (*PresignedUpload, error) {
	policy, ok := validation.PolicyFor(s.cfg, fileType)
	if !ok {
		return nil, validationError(ctx, fmt.Sprintf("unsupported file type %q", fileType), "5b8e2f14-7c3d-4a9e-b1f6-0d2c8e4a7b01")
	}
	ext, err := validation.ValidateName(ctx, filename, policy)
	if err != nil {
		return nil, err
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !contains(policy.AllowedMimeTypes, mimeType) {
		return nil, validationError(ctx, fmt.Sprintf("file type %s is not allowed", mimeType), "5b8e2f14-7c3d-4a9e-b1f6-0d2c8e4a7b02")
	}

	name, err := mintFilename(ext)
	if err != nil {
		return nil, err
	}
	key := objectKey("", name)
	ttl := s.cfg.PresignUploadTTL

	started := time.Now()
	url, err := s.store.PresignPut(ctx, s.cfg.BucketFor(fileType), key, mimeType, ttl)
	metrics.RecordPresign(time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}
	return &PresignedUpload{
		UploadURL: url,
		Key:       key,
		ExpiresIn: int64(ttl.Seconds()),
	}, nil
}

func (s *Service) validate(ctx context.Context, file UploadFile, category string) (*validation.ValidatedFile, error) {
	policy, _ := validation.PolicyFor(s.cfg, category)
	validated, err := validation.Validate(ctx, file.Data, file.DeclaredMimeType, file.Filename, policy)
	if err != nil {
		metrics.RecordUpload(category, "rejected", 0)
		return nil, err
	}
	return validated, nil
}

// storeImage runs validate, compress and put. The returned row is not yet persisted.
func (s *Service) storeImage(ctx context.Context, file UploadFile, opts ImageUploadOptions) (*Image, *transcode.CompressedImage, error) {
	validated, err := s.validate(ctx, file, config.CategoryImage)
	if err != nil {
		return nil, nil, err
	}

	compressed := s.transcoder.Compress(ctx, validated.Data, validated.MimeType, transcode.ImageOptions{
		MaxWidth:  opts.MaxWidth,
		MaxHeight: opts.MaxHeight,
		Quality:   opts.Quality,
	})
	if compressed.CompressionRatio > 0 {
		metrics.RecordCompression(compressed.CompressionRatio)
	}

	ext := validated.Extension
	if compressed.MimeType != validated.MimeType {
		if converted, ok := outputExtensions[compressed.MimeType]; ok {
			ext = converted
		}
	}
	filename, err := mintFilename(ext)
	if err != nil {
		return nil, nil, err
	}

	bucket := s.cfg.ImageBucket
	key := objectKey(opts.Folder, filename)
	if err := s.store.Put(ctx, bucket, key, compressed.Data, compressed.MimeType); err != nil {
		metrics.RecordUpload(config.CategoryImage, "failed", 0)
		return nil, nil, err
	}

	return &Image{
		FileRecord: FileRecord{
			ID:           mediaid.New(mediaid.PrefixImage),
			Filename:     filename,
			OriginalName: validated.OriginalName,
			MimeType:     compressed.MimeType,
			Filesize:     int64(len(compressed.Data)),
			BucketName:   bucket,
			Key:          key,
			URL:          s.publicURL(bucket, key),
		},
		Width:  compressed.Width,
		Height: compressed.Height,
		Alt:    strings.TrimSpace(opts.Alt),
	}, compressed, nil
}

func (s *Service) storeAudio(ctx context.Context, file UploadFile, opts AudioUploadOptions) (*AudioFile, *transcode.AudioMetadata, error) {
	validated, err := s.validate(ctx, file, config.CategoryAudio)
	if err != nil {
		return nil, nil, err
	}

	meta, err := transcode.ExtractAudioMetadata(validated.Data, file.Filename)
	if err != nil {
		s.log.Warn().Err(err).Str("filename", validated.OriginalName).Msg("audio metadata unavailable")
		meta = &transcode.AudioMetadata{
			Format: transcode.AudioFormat(validated.Data, file.Filename),
			Size:   validated.Size,
		}
	}

	filename, err := mintFilename(validated.Extension)
	if err != nil {
		return nil, nil, err
	}
	bucket := s.cfg.AudioBucket
	key := objectKey(opts.Folder, filename)
	if err := s.store.Put(ctx, bucket, key, validated.Data, validated.MimeType); err != nil {
		metrics.RecordUpload(config.CategoryAudio, "failed", 0)
		return nil, nil, err
	}

	url := privateURL(bucket, key)
	if opts.IsPublic {
		url = s.publicURL(bucket, key)
	}
	return &AudioFile{
		FileRecord: FileRecord{
			ID:           mediaid.New(mediaid.PrefixAudio),
			Filename:     filename,
			OriginalName: validated.OriginalName,
			MimeType:     validated.MimeType,
			Filesize:     validated.Size,
			BucketName:   bucket,
			Key:          key,
			URL:          url,
		},
		Duration:   meta.Duration,
		Bitrate:    meta.Bitrate,
		SampleRate: meta.SampleRate,
		Format:     meta.Format,
		IsPublic:   opts.IsPublic,
	}, meta, nil
}

// deleteRecord deletes the row and then the blob inside one transaction, so a
// blob failure rolls the row back. A commit failure after the blob is gone
// leaves a dangling row that is logged for reconciliation.
func (s *Service) deleteRecord(ctx context.Context, category string, rec FileRecord, deleteRow func(ctx context.Context) error) error {
	blobDeleted := false
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := deleteRow(ctx); err != nil {
			return err
		}
		if err := s.store.Delete(ctx, rec.BucketName, rec.Key); err != nil {
			return err
		}
		blobDeleted = true
		return nil
	})
	if err != nil {
		if blobDeleted {
			s.divergence.record(ctx, KindDanglingRow, category, rec.BucketName, rec.Key, rec.ID, "catalog delete did not commit after blob removal", err)
		}
		return err
	}
	metrics.RecordDelete(category)
	s.log.Info().Str("id", rec.ID).Str("key", rec.Key).Str("category", category).Msg("media deleted")
	return nil
}

func (s *Service) withGalleryLock(ctx context.Context, galleryID *string, fn func(ctx context.Context) error) error {
	if galleryID == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, galleryLockName(*galleryID), fn)
}

// compensate removes a blob whose row was never written. It must run outside any transaction.
func (s *Service) compensate(ctx context.Context, category, bucket, key, reason string, cause error) {
	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.store.Delete(cleanupCtx, bucket, key); err != nil {
		s.divergence.record(cleanupCtx, KindOrphanBlob, category, bucket, key, "", reason+": "+cause.Error(), err)
		return
	}
	s.log.Warn().Err(cause).Str("bucket", bucket).Str("key", key).Msg("compensating delete removed unreferenced blob")
}

func (s *Service) removeReplaced(ctx context.Context, category, bucket, key string) {
	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.store.Delete(cleanupCtx, bucket, key); err != nil {
		s.divergence.record(cleanupCtx, KindOrphanBlob, category, bucket, key, "", "replaced blob cleanup failed", err)
		return
	}
	metrics.RecordDelete(category)
}

func (s *Service) publicURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", s.cfg.PublicURLBase(), bucket, key)
}

func privateURL(bucket, key string) string {
	return PrivateURLScheme + bucket + "/" + key
}

func galleryLockName(galleryID string) string {
	return "gallery:" + galleryID
}

// mintFilename returns {unixMillis}_{16 hex chars}{ext}.
func mintFilename(ext string) (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate filename: %w", err)
	}
	return fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), hex.EncodeToString(b[:]), ext), nil
}

// objectKey joins a sanitized folder and filename. Unsafe folder segments are dropped.
func objectKey(folder, filename string) string {
	segments := make([]string, 0, 4)
	for _, part := range strings.Split(strings.ReplaceAll(folder, "\\", "/"), "/") {
		if folderSegmentPattern.MatchString(part) {
			segments = append(segments, part)
		}
	}
	if len(segments) == 0 {
		segments = append(segments, defaultFolder)
	}
	return strings.Join(segments, "/") + "/" + filename
}

func imageMetadata(img *Image, compressed *transcode.CompressedImage) map[string]any {
	return map[string]any{
		"width":            img.Width,
		"height":           img.Height,
		"order":            img.Order,
		"originalSize":     compressed.OriginalSize,
		"compressedSize":   compressed.CompressedSize,
		"compressionRatio": compressed.CompressionRatio,
	}
}

func audioMetadata(audio *AudioFile, meta *transcode.AudioMetadata) map[string]any {
	out := map[string]any{
		"duration":   audio.Duration,
		"bitrate":    audio.Bitrate,
		"sampleRate": audio.SampleRate,
		"format":     audio.Format,
		"isPublic":   audio.IsPublic,
	}
	if meta.Channels > 0 {
		out["channels"] = meta.Channels
	}
	if meta.Title != "" {
		out["title"] = meta.Title
	}
	if meta.Artist != "" {
		out["artist"] = meta.Artist
	}
	return out
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

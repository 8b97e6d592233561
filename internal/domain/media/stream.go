package media

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/domain"
	"jan-server/services/media-storage/internal/infrastructure/metrics"
	"jan-server/services/media-storage/internal/utils/httprange"
	"jan-server/services/media-storage/internal/utils/platformerrors"
)

const (
	cacheControlPublic      = "public, max-age=3600"
	cacheControlPrivate     = "private, max-age=3600"
	cacheControlPublicImage = "public, max-age=86400"
)

// Stream is a resolved response body with the headers a responder needs.
// Partial streams cover Blob.Start..Blob.End of Blob.TotalSize bytes.
type Stream struct {
	Blob         *Blob
	Partial      bool
	NotModified  bool
	MimeType     string
	CacheControl string
	ETag         string
	LastModified time.Time
	// AttachmentName is set for downloads.
	AttachmentName string
}

// Conditions carries the conditional request headers used for images.
type Conditions struct {
	IfNoneMatch     string
	IfModifiedSince string
}

// StreamService resolves a record, checks visibility and fetches the bytes.
// Visibility is read from the catalog on every call.
type StreamService struct {
	store     ObjectStore
	images    ImageRepository
	audio     AudioRepository
	downloads DownloadRepository
	log       zerolog.Logger
}

func NewStreamService(store ObjectStore, images ImageRepository, audio AudioRepository, downloads DownloadRepository, log zerolog.Logger) *StreamService {
	return &StreamService{
		store:     store,
		images:    images,
		audio:     audio,
		downloads: downloads,
		log:       log.With().Str("component", "range-streamer").Logger(),
	}
}

// Audio streams a track. Private tracks need a principal and fail before any storage call without one.
func (s *StreamService) Audio(ctx context.Context, id string, principal *domain.Principal, rangeHeader string) (*Stream, error) {
	audio, err := s.audio.FindByID(ctx, id)
	if err != nil {
		metrics.RecordStream(config.CategoryAudio, statusOf(err))
		return nil, err
	}
	cacheControl := cacheControlPublic
	if !audio.IsPublic {
		if principal == nil {
			metrics.RecordStream(config.CategoryAudio, "unauthorized")
			return nil, unauthorized(ctx, "authentication required", "6a2d8f4b-1c7e-4e9a-b3d5-8f1a4c7e2b01")
		}
		cacheControl = cacheControlPrivate
	}
	return s.fetch(ctx, config.CategoryAudio, audio.FileRecord, rangeHeader, cacheControl)
}

// Download streams a gated deliverable as an attachment.
func (s *StreamService) Download(ctx context.Context, id string, principal *domain.Principal, rangeHeader string) (*Stream, error) {
	download, err := s.downloads.FindByID(ctx, id)
	if err != nil {
		metrics.RecordStream(config.CategoryDownload, statusOf(err))
		return nil, err
	}
	if principal == nil {
		metrics.RecordStream(config.CategoryDownload, "unauthorized")
		return nil, unauthorized(ctx, "authentication required", "6a2d8f4b-1c7e-4e9a-b3d5-8f1a4c7e2b02")
	}
	stream, err := s.fetch(ctx, config.CategoryDownload, download.FileRecord, rangeHeader, cacheControlPrivate)
	if err != nil {
		return nil, err
	}
	stream.AttachmentName = download.OriginalName
	return stream, nil
}

// Image serves a public image, honouring If-None-Match and If-Modified-Since.
func (s *StreamService) Image(ctx context.Context, id string, cond Conditions) (*Stream, error) {
	img, err := s.images.FindByID(ctx, id)
	if err != nil {
		metrics.RecordStream(config.CategoryImage, statusOf(err))
		return nil, err
	}

	etag := imageETag(img)
	modified := img.UpdatedAt.UTC().Truncate(time.Second)
	if notModified(cond, etag, modified) {
		metrics.RecordStream(config.CategoryImage, "304")
		return &Stream{
			NotModified:  true,
			MimeType:     img.MimeType,
			CacheControl: cacheControlPublicImage,
			ETag:         etag,
			LastModified: modified,
		}, nil
	}

	stream, err := s.fetch(ctx, config.CategoryImage, img.FileRecord, "", cacheControlPublicImage)
	if err != nil {
		return nil, err
	}
	stream.ETag = etag
	stream.LastModified = modified
	return stream, nil
}

// fetch returns the full object without a usable range and the requested slice otherwise.
// Malformed range headers are ignored.
func (s *StreamService) fetch(ctx context.Context, category string, rec FileRecord, rangeHeader, cacheControl string) (*Stream, error) {
	spec, err := httprange.Parse(rangeHeader)
	if err != nil {
		s.log.Debug().Str("range", rangeHeader).Str("id", rec.ID).Msg("ignoring malformed range header")
		spec = nil
	}

	var blob *Blob
	switch {
	case spec == nil:
		blob, err = s.store.Open(ctx, rec.BucketName, rec.Key)
	case spec.Start != nil:
		blob, err = s.store.GetRange(ctx, rec.BucketName, rec.Key, *spec.Start, spec.End)
	default:
		blob, err = s.suffix(ctx, rec, spec)
	}
	if err != nil {
		return nil, s.fetchError(ctx, category, rec, err)
	}

	partial := spec != nil
	status := http.StatusOK
	if partial {
		status = http.StatusPartialContent
	}
	metrics.RecordStream(category, strconv.Itoa(status))
	return &Stream{
		Blob:         blob,
		Partial:      partial,
		MimeType:     rec.MimeType,
		CacheControl: cacheControl,
		LastModified: blob.LastModified,
	}, nil
}

func (s *StreamService) suffix(ctx context.Context, rec FileRecord, spec *httprange.Spec) (*Blob, error) {
	info, err := s.store.Stat(ctx, rec.BucketName, rec.Key)
	if err != nil {
		return nil, err
	}
	start, end, ok := spec.Resolve(info.Size)
	if !ok {
		return nil, rangeError(ctx, info.Size)
	}
	return s.store.GetRange(ctx, rec.BucketName, rec.Key, start, &end)
}

// fetchError keeps range errors as they are and turns everything else into a
// generic storage failure. A missing blob under a live row is a consistency violation.
func (s *StreamService) fetchError(ctx context.Context, category string, rec FileRecord, err error) error {
	switch {
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeRangeNotSatisfiable):
		metrics.RecordStream(category, "416")
		return err
	case isNotFound(err):
		metrics.RecordConsistencyViolation(category)
		s.log.Error().
			Str("event", "consistency_violation").
			Str("category", category).
			Str("id", rec.ID).
			Str("bucket", rec.BucketName).
			Str("key", rec.Key).
			Msg("catalog row references a missing blob")
		metrics.RecordStream(category, "500")
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeStorage,
			"failed to stream file", err, "6a2d8f4b-1c7e-4e9a-b3d5-8f1a4c7e2b03")
	default:
		metrics.RecordStream(category, "500")
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeStorage) {
			return err
		}
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeStorage,
			"failed to stream file", err, "6a2d8f4b-1c7e-4e9a-b3d5-8f1a4c7e2b04")
	}
}

func rangeError(ctx context.Context, total int64) error {
	return platformerrors.NewErrorWithContext(ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeRangeNotSatisfiable,
		"requested range not satisfiable",
		nil,
		"6a2d8f4b-1c7e-4e9a-b3d5-8f1a4c7e2b05",
		map[string]any{"total_size": total},
	)
}

func statusOf(err error) string {
	if pe := platformerrors.GetPlatformError(err); pe != nil {
		return strconv.Itoa(platformerrors.ErrorTypeToHTTPStatus(pe.Type))
	}
	return "500"
}

func imageETag(img *Image) string {
	return fmt.Sprintf(`"%s-%x"`, img.ID, img.UpdatedAt.UnixNano())
}

func notModified(cond Conditions, etag string, modified time.Time) bool {
	if cond.IfNoneMatch != "" {
		for _, candidate := range strings.Split(cond.IfNoneMatch, ",") {
			candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
			if candidate == "*" || candidate == etag {
				return true
			}
		}
		return false
	}
	if cond.IfModifiedSince != "" && !modified.IsZero() {
		since, err := http.ParseTime(cond.IfModifiedSince)
		return err == nil && !modified.After(since)
	}
	return false
}

package responses

import (
	"jan-server/services/media-storage/internal/domain/media"
)

// UploadResponse is returned by every upload and replace endpoint.
type UploadResponse = media.UploadResult

// PresignResponse contains a presigned upload grant.
type PresignResponse = media.PresignedUpload

// GalleryResponse lists the images of a gallery in display order.
type GalleryResponse struct {
	GalleryID string         `json:"galleryId"`
	Images    []*media.Image `json:"images"`
	Count     int            `json:"count"`
}

// BuildGalleryResponse creates a gallery listing.
func BuildGalleryResponse(galleryID string, images []*media.Image) *GalleryResponse {
	if images == nil {
		images = []*media.Image{}
	}
	return &GalleryResponse{
		GalleryID: galleryID,
		Images:    images,
		Count:     len(images),
	}
}

// DeleteGalleryResponse reports how many images a cascade removed.
type DeleteGalleryResponse struct {
	GalleryID string `json:"galleryId"`
	Deleted   int64  `json:"deleted"`
}

// ReconciliationListResponse lists reconciliation events.
type ReconciliationListResponse struct {
	Events []*media.ReconciliationEvent `json:"events"`
	Count  int                          `json:"count"`
}

// BuildReconciliationListResponse creates a reconciliation listing.
func BuildReconciliationListResponse(events []*media.ReconciliationEvent) *ReconciliationListResponse {
	if events == nil {
		events = []*media.ReconciliationEvent{}
	}
	return &ReconciliationListResponse{Events: events, Count: len(events)}
}

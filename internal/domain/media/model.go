package media

import (
	"time"
)

// Reconciliation event kinds.
const (
	KindOrphanBlob  = "orphan_blob"
	KindDanglingRow = "dangling_row"
)

// Reconciliation event statuses.
const (
	StatusPending  = "pending"
	StatusResolved = "resolved"
	StatusFailed   = "failed"
)

// PrivateURLScheme marks gated assets that must be fetched through the streaming endpoints.
const PrivateURLScheme = "private://"

// FileRecord holds the attributes shared by every catalog variant.
type FileRecord struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Filesize     int64     `json:"filesize"`
	BucketName   string    `json:"bucketName"`
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Image is a stored picture, optionally ordered inside a gallery.
type Image struct {
	FileRecord
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Order     int     `json:"order"`
	GalleryID *string `json:"galleryId,omitempty"`
	Alt       string  `json:"alt,omitempty"`
}

// AudioFile is a stored track. Private tracks are only streamed to authenticated callers.
type AudioFile struct {
	FileRecord
	Duration   int    `json:"duration"`
	Bitrate    int    `json:"bitrate"`
	SampleRate int    `json:"sampleRate"`
	Format     string `json:"format"`
	IsPublic   bool   `json:"isPublic"`
}

// DownloadFile is a stored deliverable. Downloads are always gated.
type DownloadFile struct {
	FileRecord
}

// ReconciliationEvent records a blob/row divergence that needs out-of-band cleanup.
type ReconciliationEvent struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Category   string     `json:"category"`
	Bucket     string     `json:"bucket"`
	Key        string     `json:"key"`
	RecordID   string     `json:"recordId,omitempty"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	Attempts   int        `json:"attempts"`
	LastError  string     `json:"lastError,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// UploadFile is a raw client upload before validation.
type UploadFile struct {
	Data             []byte
	Filename         string
	DeclaredMimeType string
}

// ImageUploadOptions controls image placement and transcoding.
type ImageUploadOptions struct {
	Folder    string
	GalleryID string
	Alt       string
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// AudioUploadOptions controls audio placement and visibility.
type AudioUploadOptions struct {
	Folder   string
	IsPublic bool
}

// DownloadUploadOptions controls download placement.
type DownloadUploadOptions struct {
	Folder string
}

// UploadResult is returned to callers after a successful upload.
type UploadResult struct {
	ID           string         `json:"id"`
	Filename     string         `json:"filename"`
	OriginalName string         `json:"originalName"`
	MimeType     string         `json:"mimeType"`
	Filesize     int64          `json:"filesize"`
	BucketName   string         `json:"bucketName"`
	Key          string         `json:"key"`
	URL          string         `json:"url"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// PresignedUpload is a direct-to-store upload grant.
type PresignedUpload struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
	ExpiresIn int64  `json:"expiresIn"`
}

func resultFromRecord(rec FileRecord, metadata map[string]any) *UploadResult {
	return &UploadResult{
		ID:           rec.ID,
		Filename:     rec.Filename,
		OriginalName: rec.OriginalName,
		MimeType:     rec.MimeType,
		Filesize:     rec.Filesize,
		BucketName:   rec.BucketName,
		Key:          rec.Key,
		URL:          rec.URL,
		Metadata:     metadata,
	}
}

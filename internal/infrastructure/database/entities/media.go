package entities

import "time"

// Image represents a persisted image row.
type Image struct {
	ID           string    `gorm:"type:varchar(40);primaryKey"`
	Filename     string    `gorm:"type:varchar(255);not null"`
	OriginalName string    `gorm:"type:varchar(255);not null"`
	MimeType     string    `gorm:"type:varchar(100);not null"`
	Filesize     int64     `gorm:"not null"`
	BucketName   string    `gorm:"type:varchar(63);not null;uniqueIndex:idx_images_bucket_key,priority:1"`
	ObjectKey    string    `gorm:"type:varchar(512);not null;uniqueIndex:idx_images_bucket_key,priority:2"`
	URL          string    `gorm:"column:url;type:varchar(1024);not null"`
	Width        int       `gorm:"not null;default:0"`
	Height       int       `gorm:"not null;default:0"`
	SortOrder    int       `gorm:"not null;default:0;uniqueIndex:idx_images_gallery_order,priority:2"`
	GalleryID    *string   `gorm:"type:varchar(64);uniqueIndex:idx_images_gallery_order,priority:1"`
	Alt          string    `gorm:"type:varchar(512);not null;default:''"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Image) TableName() string {
	return "images"
}

// AudioFile represents a persisted audio row.
type AudioFile struct {
	ID           string    `gorm:"type:varchar(40);primaryKey"`
	Filename     string    `gorm:"type:varchar(255);not null"`
	OriginalName string    `gorm:"type:varchar(255);not null"`
	MimeType     string    `gorm:"type:varchar(100);not null"`
	Filesize     int64     `gorm:"not null"`
	BucketName   string    `gorm:"type:varchar(63);not null;uniqueIndex:idx_audio_files_bucket_key,priority:1"`
	ObjectKey    string    `gorm:"type:varchar(512);not null;uniqueIndex:idx_audio_files_bucket_key,priority:2"`
	URL          string    `gorm:"column:url;type:varchar(1024);not null"`
	Duration     int       `gorm:"not null;default:0"`
	Bitrate      int       `gorm:"not null;default:0"`
	SampleRate   int       `gorm:"not null;default:0"`
	Format       string    `gorm:"type:varchar(16);not null;default:''"`
	IsPublic     bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (AudioFile) TableName() string {
	return "audio_files"
}

// DownloadFile represents a persisted download row.
type DownloadFile struct {
	ID           string    `gorm:"type:varchar(40);primaryKey"`
	Filename     string    `gorm:"type:varchar(255);not null"`
	OriginalName string    `gorm:"type:varchar(255);not null"`
	MimeType     string    `gorm:"type:varchar(100);not null"`
	Filesize     int64     `gorm:"not null"`
	BucketName   string    `gorm:"type:varchar(63);not null;uniqueIndex:idx_download_files_bucket_key,priority:1"`
	ObjectKey    string    `gorm:"type:varchar(512);not null;uniqueIndex:idx_download_files_bucket_key,priority:2"`
	URL          string    `gorm:"column:url;type:varchar(1024);not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (DownloadFile) TableName() string {
	return "download_files"
}

// ReconciliationEvent represents a persisted reconciliation log entry.
type ReconciliationEvent struct {
	ID         string    `gorm:"type:varchar(40);primaryKey"`
	Kind       string    `gorm:"type:varchar(32);not null"`
	Category   string    `gorm:"type:varchar(16);not null"`
	Bucket     string    `gorm:"type:varchar(63);not null"`
	ObjectKey  string    `gorm:"type:varchar(512);not null"`
	RecordID   string    `gorm:"type:varchar(40);not null;default:''"`
	Reason     string    `gorm:"type:text;not null;default:''"`
	Status     string    `gorm:"type:varchar(16);not null;default:'pending';index:idx_reconciliation_events_status,priority:1"`
	Attempts   int       `gorm:"not null;default:0"`
	LastError  string    `gorm:"type:text;not null;default:''"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_reconciliation_events_status,priority:2"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
	ResolvedAt *time.Time
}

func (ReconciliationEvent) TableName() string {
	return "reconciliation_events"
}

// All lists every entity for schema tooling.
func All() []any {
	return []any{&Image{}, &AudioFile{}, &DownloadFile{}, &ReconciliationEvent{}}
}

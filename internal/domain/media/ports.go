package media

import (
	"context"
	"io"
	"time"
)

// Blob is a streamed object body. Start and End are inclusive offsets into an
// object of TotalSize bytes; ContentLength is End-Start+1.
type Blob struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	TotalSize     int64
	Start         int64
	End           int64
	LastModified  time.Time
}

// ObjectInfo is the result of a metadata-only probe.
type ObjectInfo struct {
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// ObjectStore is the gateway to the blob backend. Errors are platform errors of type
// NotFound, RangeNotSatisfiable or Storage; backend details never leave the gateway.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Open(ctx context.Context, bucket, key string) (*Blob, error)
	// GetRange fetches [start, end]. A nil end reads to the end of the object and an
	// end past the object is clamped to TotalSize-1.
	GetRange(ctx context.Context, bucket, key string, start int64, end *int64) (*Blob, error)
	Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error)
	// Delete succeeds when the object is already gone.
	Delete(ctx context.Context, bucket, key string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error)
	Health(ctx context.Context) error
}

// ImageRepository persists image rows.
type ImageRepository interface {
	Create(ctx context.Context, img *Image) error
	FindByID(ctx context.Context, id string) (*Image, error)
	FindByIDs(ctx context.Context, ids []string) ([]*Image, error)
	ExistsByKey(ctx context.Context, bucket, key string) (bool, error)
	ListByGallery(ctx context.Context, galleryID string) ([]*Image, error)
	CountByGallery(ctx context.Context, galleryID string) (int64, error)
	UpdateOrder(ctx context.Context, id string, order int) error
	UpdateOrders(ctx context.Context, orders map[string]int) error
	Delete(ctx context.Context, id string) error
	DeleteByGallery(ctx context.Context, galleryID string) (int64, error)
}

// AudioRepository persists audio rows.
type AudioRepository interface {
	Create(ctx context.Context, audio *AudioFile) error
	FindByID(ctx context.Context, id string) (*AudioFile, error)
	FindByIDs(ctx context.Context, ids []string) ([]*AudioFile, error)
	ExistsByKey(ctx context.Context, bucket, key string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// DownloadRepository persists download rows.
type DownloadRepository interface {
	Create(ctx context.Context, file *DownloadFile) error
	FindByID(ctx context.Context, id string) (*DownloadFile, error)
	FindByIDs(ctx context.Context, ids []string) ([]*DownloadFile, error)
	ExistsByKey(ctx context.Context, bucket, key string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// ReconciliationRepository stores the reconciliation log. Writes bypass any
// ambient transaction so entries survive a rollback of the surrounding work.
type ReconciliationRepository interface {
	Record(ctx context.Context, event *ReconciliationEvent) error
	FindByID(ctx context.Context, id string) (*ReconciliationEvent, error)
	List(ctx context.Context, status string, limit int) ([]*ReconciliationEvent, error)
	MarkAttempt(ctx context.Context, id string, lastErr string, maxAttempts int) error
	MarkResolved(ctx context.Context, id string) error
}

// Transactor runs fn inside one database transaction carried on the context.
// Nested calls join the outer transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serializes work on a named resource across processes.
type Locker interface {
	WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

package media

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/infrastructure/metrics"
)

const reconcileLockName = "media-storage:reconciler"

// divergenceLog reports a blob/row divergence both as a structured log line and
// as a queued reconciliation event.
type divergenceLog struct {
	events ReconciliationRepository
	log    zerolog.Logger
}

func newDivergenceLog(events ReconciliationRepository, log zerolog.Logger) divergenceLog {
	return divergenceLog{events: events, log: log.With().Str("component", "reconciliation").Logger()}
}

func (d divergenceLog) record(ctx context.Context, kind, category, bucket, key, recordID, reason string, cause error) {
	d.log.Error().
		Err(cause).
		Str("event", "reconciliation_needed").
		Str("kind", kind).
		Str("category", category).
		Str("bucket", bucket).
		Str("key", key).
		Str("record_id", recordID).
		Msg(reason)

	event := &ReconciliationEvent{
		Kind:     kind,
		Category: category,
		Bucket:   bucket,
		Key:      key,
		RecordID: recordID,
		Reason:   reason,
	}
	if cause != nil {
		event.LastError = cause.Error()
	}
	if err := d.events.Record(ctx, event); err != nil {
		d.log.Error().Err(err).Str("key", key).Msg("failed to record reconciliation event")
		metrics.RecordReconciliation(kind, "record_failed")
		return
	}
	metrics.RecordReconciliation(kind, "recorded")
}

// ReconcilerConfig bounds the background worker.
type ReconcilerConfig struct {
	Interval    time.Duration
	MaxAttempts int
	BatchSize   int
}

// NewReconcilerConfig reads the worker settings from the service config.
func NewReconcilerConfig(cfg *config.Config) ReconcilerConfig {
	return ReconcilerConfig{
		Interval:    cfg.ReconcileInterval,
		MaxAttempts: cfg.ReconcileMaxAttempts,
		BatchSize:   cfg.ReconcileBatchSize,
	}
}

// Reconciler retries queued divergences until they are repaired or run out of attempts.
type Reconciler struct {
	cfg       ReconcilerConfig
	events    ReconciliationRepository
	store     ObjectStore
	images    ImageRepository
	audio     AudioRepository
	downloads DownloadRepository
	tx        Transactor
	locker    Locker
	log       zerolog.Logger
}

func NewReconciler(
	cfg ReconcilerConfig,
	events ReconciliationRepository,
	store ObjectStore,
	images ImageRepository,
	audio AudioRepository,
	downloads DownloadRepository,
	tx Transactor,
	locker Locker,
	log zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		cfg:       cfg,
		events:    events,
		store:     store,
		images:    images,
		audio:     audio,
		downloads: downloads,
		tx:        tx,
		locker:    locker,
		log:       log.With().Str("component", "reconciler").Logger(),
	}
}

// Run processes pending events every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	if r.cfg.Interval <= 0 {
		r.log.Info().Msg("reconciler disabled")
		return
	}
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.cfg.Interval).Msg("reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn().Err(err).Msg("reconciliation pass failed")
			}
		}
	}
}

// RunOnce processes one batch of pending events under the cluster-wide lock and
// returns how many were resolved.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	resolved := 0
	err := r.locker.WithLock(ctx, reconcileLockName, func(ctx context.Context) error {
		events, err := r.events.List(ctx, StatusPending, r.cfg.BatchSize)
		if err != nil {
			return err
		}
		for _, event := range events {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if r.process(ctx, event) {
				resolved++
			}
		}
		return nil
	})
	return resolved, err
}

// List returns queued events for operators. An empty status lists everything.
func (r *Reconciler) List(ctx context.Context, status string, limit int) ([]*ReconciliationEvent, error) {
	switch status {
	case "", StatusPending, StatusResolved, StatusFailed:
	default:
		return nil, validationError(ctx, "status must be pending, resolved or failed", "8c1d4e7f-2a5b-4c8d-9e1f-3a6b9c2d5e01")
	}
	return r.events.List(ctx, status, limit)
}

// Resolve marks an event as handled by an operator.
func (r *Reconciler) Resolve(ctx context.Context, id string) (*ReconciliationEvent, error) {
	if err := r.events.MarkResolved(ctx, id); err != nil {
		return nil, err
	}
	metrics.RecordReconciliation("manual", "resolved")
	return r.events.FindByID(ctx, id)
}

func (r *Reconciler) process(ctx context.Context, event *ReconciliationEvent) bool {
	log := r.log.With().Str("event_id", event.ID).Str("kind", event.Kind).Str("key", event.Key).Logger()

	var err error
	switch event.Kind {
	case KindOrphanBlob:
		err = r.removeOrphanBlob(ctx, event)
	case KindDanglingRow:
		err = r.removeDanglingRow(ctx, event)
	default:
		log.Warn().Msg("unknown reconciliation kind")
		return false
	}

	if err != nil {
		log.Warn().Err(err).Int("attempt", event.Attempts+1).Msg("reconciliation attempt failed")
		metrics.RecordReconciliation(event.Kind, "retry_failed")
		if markErr := r.events.MarkAttempt(ctx, event.ID, err.Error(), r.cfg.MaxAttempts); markErr != nil {
			log.Error().Err(markErr).Msg("failed to record reconciliation attempt")
		}
		return false
	}

	if err := r.events.MarkResolved(ctx, event.ID); err != nil {
		log.Error().Err(err).Msg("failed to mark reconciliation event resolved")
		return false
	}
	metrics.RecordReconciliation(event.Kind, "resolved")
	log.Info().Msg("reconciliation event resolved")
	return true
}

// removeOrphanBlob deletes the blob unless a row has since claimed its key.
func (r *Reconciler) removeOrphanBlob(ctx context.Context, event *ReconciliationEvent) error {
	referenced, err := r.referenced(ctx, event.Category, event.Bucket, event.Key)
	if err != nil {
		return err
	}
	if referenced {
		return nil
	}
	return r.store.Delete(ctx, event.Bucket, event.Key)
}

// removeDanglingRow deletes the row only when its blob is confirmed gone.
func (r *Reconciler) removeDanglingRow(ctx context.Context, event *ReconciliationEvent) error {
	exists, err := r.store.Exists(ctx, event.Bucket, event.Key)
	if err != nil {
		return err
	}
	if exists || event.RecordID == "" {
		return nil
	}

	switch event.Category {
	case config.CategoryImage:
		err = r.removeDanglingImage(ctx, event.RecordID)
	case config.CategoryAudio:
		err = r.audio.Delete(ctx, event.RecordID)
	case config.CategoryDownload:
		err = r.downloads.Delete(ctx, event.RecordID)
	default:
		return validationError(ctx, "unknown category "+event.Category, "8c1d4e7f-2a5b-4c8d-9e1f-3a6b9c2d5e02")
	}
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// removeDanglingImage drops a gallery image the same way a user delete does, so
// the remaining positions stay dense.
func (r *Reconciler) removeDanglingImage(ctx context.Context, id string) error {
	img, err := r.images.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if img.GalleryID == nil {
		return r.images.Delete(ctx, id)
	}
	galleryID := *img.GalleryID
	return r.locker.WithLock(ctx, galleryLockName(galleryID), func(ctx context.Context) error {
		return r.tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := r.images.Delete(ctx, id); err != nil {
				return err
			}
			return compactGallery(ctx, r.images, galleryID)
		})
	})
}

func (r *Reconciler) referenced(ctx context.Context, category, bucket, key string) (bool, error) {
	switch category {
	case config.CategoryImage:
		return r.images.ExistsByKey(ctx, bucket, key)
	case config.CategoryAudio:
		return r.audio.ExistsByKey(ctx, bucket, key)
	case config.CategoryDownload:
		return r.downloads.ExistsByKey(ctx, bucket, key)
	default:
		return false, validationError(ctx, "unknown category "+category, "8c1d4e7f-2a5b-4c8d-9e1f-3a6b9c2d5e03")
	}
}

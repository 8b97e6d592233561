package media

import (
	"context"
	"time"

	"gorm.io/gorm"

	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/infrastructure/database/entities"
	"jan-server/services/media-storage/internal/infrastructure/database/transaction"
	"jan-server/services/media-storage/utils/mediaid"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// ReconciliationRepository stores the reconciliation log on the base connection.
type ReconciliationRepository struct {
	db *transaction.Database
}

func NewReconciliationRepository(db *transaction.Database) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

func (r *ReconciliationRepository) Record(ctx context.Context, event *domain.ReconciliationEvent) error {
	if event.ID == "" {
		event.ID = mediaid.New(mediaid.PrefixEvent)
	}
	if event.Status == "" {
		event.Status = domain.StatusPending
	}
	entity := eventToEntity(event)
	if err := r.db.Base().WithContext(ctx).Create(&entity).Error; err != nil {
		return dbError(ctx, "failed to record reconciliation event", err, "e4d5f6a7-4b5c-4d6e-9f7a-8b9c0d1e2f01")
	}
	event.CreatedAt = entity.CreatedAt
	event.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *ReconciliationRepository) FindByID(ctx context.Context, id string) (*domain.ReconciliationEvent, error) {
	var entity entities.ReconciliationEvent
	err := r.db.Base().WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if isRecordNotFound(err) {
			return nil, notFound(ctx, "reconciliation event not found", err, "e4d5f6a7-4b5c-4d6e-9f7a-8b9c0d1e2f02")
		}
		return nil, dbError(ctx, "failed to get reconciliation event", err, "e4d5f6a7-4b5c-4d6e-9f7a-8b9c0d1e2f03")
	}
	return eventFromEntity(entity), nil
}

// List returns events oldest first. An empty status lists every status.
func (r *ReconciliationRepository) List(ctx context.Context, status string, limit int) ([]*domain.ReconciliationEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	query := r.db.Base().WithContext(ctx).Order("created_at ASC").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var rows []entities.ReconciliationEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, dbError(ctx, "failed to list reconciliation events", err, "e4d5f6a7-4b5c-4d6e-9f7a-8b9c0d1e2f04")
	}
	events := make([]*domain.ReconciliationEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, eventFromEntity(row))
	}
	return events, nil
}

// MarkAttempt counts a failed retry and moves the event to failed once maxAttempts is reached.
func (r *ReconciliationRepository) MarkAttempt(ctx context.Context, id string, lastErr string, maxAttempts int) error {
	result := r.db.Base().WithContext(ctx).
		Model(&entities.ReconciliationEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastErr,
			"status":     gorm.Expr("CASE WHEN attempts + 1 >= ? THEN ? ELSE status END", maxAttempts, domain.StatusFailed),
		})
	if result.Error != nil {
		return dbError(ctx, "failed to update reconciliation event", result.Error, "e4d5f6a7-4b5c-4d6e-9f7a-8b9c0d1e2f05")
	}
	if result.RowsAffected == 0 {
		return notFound(ctx, "reconciliation event not found", nil, "e4d5f6a7-4b5c-4d6e-9f7a-8b9c0d1e2f06")
	}
	return nil
}

func (r *ReconciliationRepository) MarkResolved(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result := r.db.Base().WithContext(ctx).
		Model(&entities.ReconciliationEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      domain.StatusResolved,
			"resolved_at": now,
		})
	if result.Error != nil {
		return dbError(ctx, "failed to resolve reconciliation event", result.Error, "e4d5f6a7-4b5c-4d6e-9f7a-8b9c0d1e2f07")
	}
	if result.RowsAffected == 0 {
		return notFound(ctx, "reconciliation event not found", nil, "e4d5f6a7-4b5c-4d6e-9f7a-8b9c0d1e2f08")
	}
	return nil
}

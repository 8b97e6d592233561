package handlers

import (
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"jan-server/services/media-storage/internal/config"
	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/infrastructure/auth"
)

// Provider wires HTTP handlers.
type Provider struct {
	Media          *MediaHandler
	Gallery        *GalleryHandler
	Reconciliation *ReconciliationHandler
	Health         *HealthHandler
}

// Services groups the domain services the handlers call into.
type Services struct {
	Media      *domain.Service
	Streams    *domain.StreamService
	Gallery    *domain.GalleryService
	Reconciler *domain.Reconciler
	Store      domain.ObjectStore
	DB         *gorm.DB
}

func NewProvider(cfg *config.Config, services Services, validator *auth.Validator, log zerolog.Logger) *Provider {
	return &Provider{
		Media:          NewMediaHandler(cfg, services.Media, services.Streams, log),
		Gallery:        NewGalleryHandler(services.Gallery, log),
		Reconciliation: NewReconciliationHandler(services.Reconciler, log),
		Health:         NewHealthHandler(cfg.ServiceName, services.Store, services.DB, validator, log),
	}
}

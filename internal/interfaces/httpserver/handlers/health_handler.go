package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/infrastructure/auth"
)

const readinessTimeout = 3 * time.Second

// HealthHandler reports liveness and dependency readiness.
type HealthHandler struct {
	serviceName string
	store       domain.ObjectStore
	db          *gorm.DB
	auth        *auth.Validator
	log         zerolog.Logger
}

func NewHealthHandler(serviceName string, store domain.ObjectStore, db *gorm.DB, validator *auth.Validator, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		store:       store,
		db:          db,
		auth:        validator,
		log:         log.With().Str("component", "health-handler").Logger(),
	}
}

// Root returns the service banner.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": h.serviceName, "status": "ok"})
}

// Healthz godoc
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Readyz godoc
// @Summary      Readiness probe
// @Description  Checks the database, the object store and the JWKS cache.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /readyz [get]
func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := gin.H{}
	ready := true

	if err := h.pingDatabase(ctx); err != nil {
		h.log.Warn().Err(err).Msg("database not ready")
		checks["database"] = "unavailable"
		ready = false
	} else {
		checks["database"] = "ok"
	}

	if err := h.store.Health(ctx); err != nil {
		h.log.Warn().Err(err).Msg("object store not ready")
		checks["storage"] = "unavailable"
		ready = false
	} else {
		checks["storage"] = "ok"
	}

	if h.auth.Ready() {
		checks["auth"] = "ok"
	} else {
		checks["auth"] = "initializing"
		ready = false
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}

func (h *HealthHandler) pingDatabase(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

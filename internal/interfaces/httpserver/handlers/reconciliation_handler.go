package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/interfaces/httpserver/requests"
	"jan-server/services/media-storage/internal/interfaces/httpserver/responses"
	"jan-server/services/media-storage/internal/utils/platformerrors"
)

// ReconciliationHandler exposes the reconciliation log to operators.
type ReconciliationHandler struct {
	reconciler *domain.Reconciler
	log        zerolog.Logger
}

func NewReconciliationHandler(reconciler *domain.Reconciler, log zerolog.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciler: reconciler,
		log:        log.With().Str("component", "reconciliation-handler").Logger(),
	}
}

// List godoc
// @Summary      List reconciliation events
// @Tags         reconciliation
// @Produce      json
// @Param        status  query     string  false  "pending, resolved or failed"
// @Param        limit   query     int     false  "Page size (max 500)"
// @Success      200     {object}  responses.ReconciliationListResponse
// @Failure      400     {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/reconciliation [get]
func (h *ReconciliationHandler) List(c *gin.Context) {
	var query requests.ReconciliationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	events, err := h.reconciler.List(c.Request.Context(), query.Status, query.Limit)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.BuildReconciliationListResponse(events))
}

// Resolve godoc
// @Summary      Mark a reconciliation event resolved
// @Tags         reconciliation
// @Produce      json
// @Param        id   path      string  true  "Event ID"
// @Success      200  {object}  domain.ReconciliationEvent
// @Failure      404  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/reconciliation/{id}/resolve [post]
func (h *ReconciliationHandler) Resolve(c *gin.Context) {
	event, err := h.reconciler.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, event)
}

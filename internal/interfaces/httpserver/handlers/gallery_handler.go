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

// GalleryHandler exposes gallery ordering endpoints.
type GalleryHandler struct {
	gallery *domain.GalleryService
	log     zerolog.Logger
}

func NewGalleryHandler(gallery *domain.GalleryService, log zerolog.Logger) *GalleryHandler {
	return &GalleryHandler{
		gallery: gallery,
		log:     log.With().Str("component", "gallery-handler").Logger(),
	}
}

// List godoc
// @Summary      List gallery images
// @Tags         galleries
// @Produce      json
// @Param        galleryId  path      string  true  "Gallery ID"
// @Success      200        {object}  responses.GalleryResponse
// @Router       /storage/galleries/{galleryId}/images [get]
func (h *GalleryHandler) List(c *gin.Context) {
	galleryID := c.Param("galleryId")
	images, err := h.gallery.List(c.Request.Context(), galleryID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.BuildGalleryResponse(galleryID, images))
}

// Reorder godoc
// @Summary      Reorder a gallery
// @Description  imageIds must list every image of the gallery exactly once.
// @Tags         galleries
// @Accept       json
// @Produce      json
// @Param        galleryId  path      string                   true  "Gallery ID"
// @Param        request    body      requests.ReorderRequest  true  "New order"
// @Success      200        {object}  responses.GalleryResponse
// @Failure      400        {object}  responses.ErrorResponse
// @Failure      409        {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/galleries/{galleryId}/order [put]
func (h *GalleryHandler) Reorder(c *gin.Context) {
	var req requests.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	galleryID := c.Param("galleryId")
	images, err := h.gallery.Reorder(c.Request.Context(), galleryID, req.ImageIDs)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.BuildGalleryResponse(galleryID, images))
}

// Move godoc
// @Summary      Move an image inside its gallery
// @Tags         galleries
// @Accept       json
// @Produce      json
// @Param        galleryId  path      string                true  "Gallery ID"
// @Param        id         path      string                true  "Image ID"
// @Param        request    body      requests.MoveRequest  true  "Target position"
// @Success      200        {object}  responses.GalleryResponse
// @Failure      400        {object}  responses.ErrorResponse
// @Failure      404        {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/galleries/{galleryId}/images/{id}/move [post]
func (h *GalleryHandler) Move(c *gin.Context) {
	var req requests.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	galleryID := c.Param("galleryId")
	images, err := h.gallery.Move(c.Request.Context(), galleryID, c.Param("id"), *req.Position)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.BuildGalleryResponse(galleryID, images))
}

// Delete godoc
// @Summary      Delete a gallery
// @Description  Removes every image row of the gallery, then their blobs.
// @Tags         galleries
// @Produce      json
// @Param        galleryId  path      string  true  "Gallery ID"
// @Success      200        {object}  responses.DeleteGalleryResponse
// @Security     BearerAuth
// @Router       /storage/galleries/{galleryId} [delete]
func (h *GalleryHandler) Delete(c *gin.Context) {
	galleryID := c.Param("galleryId")
	deleted, err := h.gallery.DeleteGallery(c.Request.Context(), galleryID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.DeleteGalleryResponse{GalleryID: galleryID, Deleted: deleted})
}

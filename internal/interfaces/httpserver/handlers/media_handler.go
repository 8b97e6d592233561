package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/interfaces/httpserver/requests"
	"jan-server/services/media-storage/internal/utils/platformerrors"
)

// multipartOverhead leaves room for form fields and part headers on top of the file limit.
const multipartOverhead = 1 << 20

// MediaHandler exposes upload, replace, delete and streaming endpoints.
type MediaHandler struct {
	cfg     *config.Config
	service *domain.Service
	streams *domain.StreamService
	log     zerolog.Logger
}

func NewMediaHandler(cfg *config.Config, service *domain.Service, streams *domain.StreamService, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		cfg:     cfg,
		service: service,
		streams: streams,
		log:     log.With().Str("component", "media-handler").Logger(),
	}
}

// UploadImage godoc
// @Summary      Upload an image
// @Description  Validates, transcodes and stores an image, optionally appending it to a gallery.
// @Tags         images
// @Accept       multipart/form-data
// @Produce      json
// @Param        file       formData  file    true   "Image file"
// @Param        alt        formData  string  false  "Alt text"
// @Param        folder     formData  string  false  "Target folder"
// @Param        galleryId  formData  string  false  "Gallery to append to"
// @Param        maxWidth   formData  int     false  "Maximum width"
// @Param        maxHeight  formData  int     false  "Maximum height"
// @Param        quality    formData  int     false  "Encoder quality (1-100)"
// @Success      201        {object}  responses.UploadResponse
// @Failure      400        {object}  responses.ErrorResponse
// @Failure      413        {object}  responses.ErrorResponse
// @Failure      401        {object}  responses.ErrorResponse
// @Failure      429        {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/images/upload [post]
func (h *MediaHandler) UploadImage(c *gin.Context) {
	var form requests.ImageUploadForm
	if !h.bindUpload(c, &form, h.cfg.ImageMaxBytes) {
		return
	}
	file, ok := h.readUpload(c, h.cfg.ImageMaxBytes)
	if !ok {
		return
	}

	result, err := h.service.UploadImage(c.Request.Context(), file, form.ToDomain())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// UploadAudio godoc
// @Summary      Upload an audio track
// @Description  Validates an audio file, extracts its metadata and stores it.
// @Tags         audio
// @Accept       multipart/form-data
// @Produce      json
// @Param        file      formData  file    true   "Audio file"
// @Param        folder    formData  string  false  "Target folder"
// @Param        isPublic  formData  bool    false  "Stream without authentication"
// @Success      201       {object}  responses.UploadResponse
// @Failure      400       {object}  responses.ErrorResponse
// @Failure      413       {object}  responses.ErrorResponse
// @Failure      401       {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/audio/upload [post]
func (h *MediaHandler) UploadAudio(c *gin.Context) {
	var form requests.AudioUploadForm
	if !h.bindUpload(c, &form, h.cfg.AudioMaxBytes) {
		return
	}
	file, ok := h.readUpload(c, h.cfg.AudioMaxBytes)
	if !ok {
		return
	}

	result, err := h.service.UploadAudio(c.Request.Context(), file, form.ToDomain())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// UploadDownload godoc
// @Summary      Upload a downloadable archive
// @Tags         downloads
// @Accept       multipart/form-data
// @Produce      json
// @Param        file    formData  file    true   "Archive or document"
// @Param        folder  formData  string  false  "Target folder"
// @Success      201     {object}  responses.UploadResponse
// @Failure      400     {object}  responses.ErrorResponse
// @Failure      413     {object}  responses.ErrorResponse
// @Failure      401     {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/downloads/upload [post]
func (h *MediaHandler) UploadDownload(c *gin.Context) {
	var form requests.DownloadUploadForm
	if !h.bindUpload(c, &form, h.cfg.DownloadMaxBytes) {
		return
	}
	file, ok := h.readUpload(c, h.cfg.DownloadMaxBytes)
	if !ok {
		return
	}

	result, err := h.service.UploadDownload(c.Request.Context(), file, form.ToDomain())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ReplaceImage godoc
// @Summary      Replace an image
// @Description  Uploads new content under the same id; the previous blob is removed afterwards.
// @Tags         images
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string  true  "Image ID"
// @Param        file  formData  file    true  "Image file"
// @Success      200   {object}  responses.UploadResponse
// @Failure      400   {object}  responses.ErrorResponse
// @Failure      413   {object}  responses.ErrorResponse
// @Failure      404   {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/images/{id} [put]
func (h *MediaHandler) ReplaceImage(c *gin.Context) {
	var form requests.ImageUploadForm
	if !h.bindUpload(c, &form, h.cfg.ImageMaxBytes) {
		return
	}
	file, ok := h.readUpload(c, h.cfg.ImageMaxBytes)
	if !ok {
		return
	}

	result, err := h.service.ReplaceImage(c.Request.Context(), c.Param("id"), file, form.ToDomain())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReplaceAudio godoc
// @Summary      Replace an audio track
// @Tags         audio
// @Accept       multipart/form-data
// @Produce      json
// @Param        id        path      string  true   "Audio ID"
// @Param        file      formData  file    true   "Audio file"
// @Param        isPublic  formData  bool    false  "Stream without authentication"
// @Success      200       {object}  responses.UploadResponse
// @Failure      400       {object}  responses.ErrorResponse
// @Failure      413       {object}  responses.ErrorResponse
// @Failure      404       {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/audio/{id} [put]
func (h *MediaHandler) ReplaceAudio(c *gin.Context) {
	var form requests.AudioUploadForm
	if !h.bindUpload(c, &form, h.cfg.AudioMaxBytes) {
		return
	}
	file, ok := h.readUpload(c, h.cfg.AudioMaxBytes)
	if !ok {
		return
	}

	result, err := h.service.ReplaceAudio(c.Request.Context(), c.Param("id"), file, form.ToDomain())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteImage godoc
// @Summary      Delete an image
// @Tags         images
// @Param        id   path  string  true  "Image ID"
// @Success      204
// @Failure      404  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/images/{id} [delete]
func (h *MediaHandler) DeleteImage(c *gin.Context) {
	h.respondDeleted(c, h.service.DeleteImage(c.Request.Context(), c.Param("id")))
}

// DeleteAudio godoc
// @Summary      Delete an audio track
// @Tags         audio
// @Param        id   path  string  true  "Audio ID"
// @Success      204
// @Failure      404  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/audio/{id} [delete]
func (h *MediaHandler) DeleteAudio(c *gin.Context) {
	h.respondDeleted(c, h.service.DeleteAudio(c.Request.Context(), c.Param("id")))
}

// DeleteDownload godoc
// @Summary      Delete a download
// @Tags         downloads
// @Param        id   path  string  true  "Download ID"
// @Success      204
// @Failure      404  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/downloads/{id} [delete]
func (h *MediaHandler) DeleteDownload(c *gin.Context) {
	h.respondDeleted(c, h.service.DeleteDownload(c.Request.Context(), c.Param("id")))
}

// PresignedURL godoc
// @Summary      Request a presigned upload URL
// @Description  Returns a short-lived URL the client can PUT the file to directly.
// @Tags         uploads
// @Accept       json
// @Produce      json
// @Param        request  body      requests.PresignRequest  true  "Upload description"
// @Success      200      {object}  responses.PresignResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      500      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/presigned-url [post]
func (h *MediaHandler) PresignedURL(c *gin.Context) {
	var req requests.PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	grant, err := h.service.PresignUpload(c.Request.Context(), req.FileType, req.Filename, req.MimeType)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, grant)
}

// GetImage godoc
// @Summary      Fetch an image
// @Description  Serves image bytes with ETag and Last-Modified validators.
// @Tags         images
// @Produce      octet-stream
// @Param        id                 path    string  true   "Image ID"
// @Param        If-None-Match      header  string  false  "Entity tag"
// @Param        If-Modified-Since  header  string  false  "HTTP date"
// @Success      200  "binary data"
// @Success      304  "not modified"
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /storage/images/{id} [get]
func (h *MediaHandler) GetImage(c *gin.Context) {
	stream, err := h.streams.Image(c.Request.Context(), c.Param("id"), domain.Conditions{
		IfNoneMatch:     c.GetHeader("If-None-Match"),
		IfModifiedSince: c.GetHeader("If-Modified-Since"),
	})
	if err != nil {
		writeStreamError(c, err, h.log)
		return
	}
	writeStream(c, stream, h.log)
}

// StreamAudio godoc
// @Summary      Stream an audio track
// @Description  Supports single byte ranges. Private tracks require authentication.
// @Tags         audio
// @Produce      octet-stream
// @Param        id     path    string  true   "Audio ID"
// @Param        Range  header  string  false  "bytes=start-end"
// @Success      200  "binary data"
// @Success      206  "partial content"
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      416  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /storage/audio/{id}/stream [get]
func (h *MediaHandler) StreamAudio(c *gin.Context) {
	stream, err := h.streams.Audio(c.Request.Context(), c.Param("id"), principalFrom(c), c.GetHeader("Range"))
	if err != nil {
		writeStreamError(c, err, h.log)
		return
	}
	writeStream(c, stream, h.log)
}

// GetDownload godoc
// @Summary      Download a file
// @Description  Always requires authentication. Served as an attachment with range support.
// @Tags         downloads
// @Produce      octet-stream
// @Param        id     path    string  true   "Download ID"
// @Param        Range  header  string  false  "bytes=start-end"
// @Success      200  "binary data"
// @Success      206  "partial content"
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      416  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /storage/downloads/{id} [get]
func (h *MediaHandler) GetDownload(c *gin.Context) {
	stream, err := h.streams.Download(c.Request.Context(), c.Param("id"), principalFrom(c), c.GetHeader("Range"))
	if err != nil {
		writeStreamError(c, err, h.log)
		return
	}
	writeStream(c, stream, h.log)
}

// bindUpload caps the request body before gin parses the multipart form, so an
// oversized request is cut off instead of being spooled to disk.
func (h *MediaHandler) bindUpload(c *gin.Context, form any, maxBytes int64) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)
	if err := c.ShouldBind(form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			platformerrors.WriteRequestTooLarge(c, fmt.Sprintf("request body exceeds %d bytes", maxBytes))
			return false
		}
		platformerrors.WriteValidationError(c, err.Error())
		return false
	}
	return true
}

// readUpload reads the multipart "file" field, stopping one byte past the limit so the
// validator can reject oversized bodies without buffering them whole.
func (h *MediaHandler) readUpload(c *gin.Context, maxBytes int64) (domain.UploadFile, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		platformerrors.WriteValidationError(c, "file is required")
		return domain.UploadFile{}, false
	}
	f, err := header.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("open multipart file")
		platformerrors.WriteValidationError(c, "failed to read file")
		return domain.UploadFile{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		h.log.Error().Err(err).Msg("read multipart file")
		platformerrors.WriteValidationError(c, "failed to read file")
		return domain.UploadFile{}, false
	}

	return domain.UploadFile{
		Data:             data,
		Filename:         header.Filename,
		DeclaredMimeType: header.Header.Get("Content-Type"),
	}, true
}

func (h *MediaHandler) respondDeleted(c *gin.Context, err error) {
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/domain"
	media "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/interfaces/httpserver/middlewares"
	"jan-server/services/media-storage/internal/utils/httprange"
	"jan-server/services/media-storage/internal/utils/platformerrors"
)

// writeStream emits the headers for a resolved stream and copies the body.
// The body is closed on every path.
func writeStream(c *gin.Context, stream *media.Stream, log zerolog.Logger) {
	header := c.Writer.Header()
	header.Set("Accept-Ranges", "bytes")
	if stream.CacheControl != "" {
		header.Set("Cache-Control", stream.CacheControl)
	}
	if stream.ETag != "" {
		header.Set("ETag", stream.ETag)
	}
	if !stream.LastModified.IsZero() {
		header.Set("Last-Modified", stream.LastModified.UTC().Format(http.TimeFormat))
	}
	if stream.NotModified {
		c.Status(http.StatusNotModified)
		return
	}

	blob := stream.Blob
	defer blob.Body.Close()

	contentType := stream.MimeType
	if contentType == "" {
		contentType = blob.ContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	header.Set("Content-Length", strconv.FormatInt(blob.ContentLength, 10))
	if stream.AttachmentName != "" {
		header.Set("Content-Disposition", attachment(stream.AttachmentName))
	}

	status := http.StatusOK
	if stream.Partial {
		header.Set("Content-Range", httprange.ContentRange(blob.Start, blob.End, blob.TotalSize))
		status = http.StatusPartialContent
	}
	c.Status(status)

	if _, err := io.Copy(c.Writer, blob.Body); err != nil {
		// usually the client went away mid-stream
		log.Warn().Err(err).Str("path", c.FullPath()).Int("status", status).Msg("stream aborted")
	}
}

// writeStreamError adds the unsatisfied Content-Range for 416 responses before writing the error body.
func writeStreamError(c *gin.Context, err error, log zerolog.Logger) {
	if pe := platformerrors.GetPlatformError(err); pe != nil && pe.Type == platformerrors.ErrorTypeRangeNotSatisfiable {
		if total, ok := pe.ContextInt64("total_size"); ok {
			c.Header("Content-Range", httprange.UnsatisfiedRange(total))
		}
	}
	platformerrors.WriteError(c, err, log)
}

// attachment builds a Content-Disposition value with a quoted ASCII fallback and an
// RFC 5987 filename* parameter when the name is not plain ASCII.
func attachment(name string) string {
	fallback := strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\' || r < 0x20 || r == 0x7f:
			return '_'
		case r > 0x7e:
			return '_'
		}
		return r
	}, name)
	value := fmt.Sprintf("attachment; filename=%q", fallback)
	if fallback != name {
		value += "; filename*=UTF-8''" + url.PathEscape(name)
	}
	return value
}

func principalFrom(c *gin.Context) *domain.Principal {
	principal, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		return nil
	}
	return &principal
}

package v1

import (
	"github.com/gin-gonic/gin"

	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/interfaces/httpserver/handlers"
	"jan-server/services/media-storage/internal/interfaces/httpserver/middlewares"
)

// Routes encapsulates storage route registration.
type Routes struct {
	handlers *handlers.Provider
	cfg      *config.Config
}

func NewRoutes(provider *handlers.Provider, cfg *config.Config) *Routes {
	return &Routes{handlers: provider, cfg: cfg}
}

// Register attaches all routes under the /storage prefix.
// Reads stay open (private streams check the principal themselves); writes require auth.
func (r *Routes) Register(router gin.IRouter) {
	media := r.handlers.Media
	gallery := r.handlers.Gallery
	reconciliation := r.handlers.Reconciliation

	storage := router.Group("/storage")
	storage.GET("/images/:id", media.GetImage)
	storage.GET("/audio/:id/stream", media.StreamAudio)
	storage.GET("/downloads/:id", media.GetDownload)
	storage.GET("/galleries/:galleryId/images", gallery.List)

	writes := storage.Group("", middlewares.RequireAuth(r.cfg))

	uploads := writes.Group("", middlewares.RateLimitMiddleware(r.cfg.UploadRateLimitRPS, r.cfg.UploadRateLimitBurst))
	uploads.POST("/images/upload", media.UploadImage)
	uploads.POST("/audio/upload", media.UploadAudio)
	uploads.POST("/downloads/upload", media.UploadDownload)
	uploads.POST("/presigned-url", media.PresignedURL)
	uploads.PUT("/images/:id", media.ReplaceImage)
	uploads.PUT("/audio/:id", media.ReplaceAudio)

	writes.DELETE("/images/:id", media.DeleteImage)
	writes.DELETE("/audio/:id", media.DeleteAudio)
	writes.DELETE("/downloads/:id", media.DeleteDownload)

	writes.PUT("/galleries/:galleryId/order", gallery.Reorder)
	writes.POST("/galleries/:galleryId/images/:id/move", gallery.Move)
	writes.DELETE("/galleries/:galleryId", gallery.Delete)

	writes.GET("/reconciliation", reconciliation.List)
	writes.POST("/reconciliation/:id/resolve", reconciliation.Resolve)
}

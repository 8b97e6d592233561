package middlewares

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows browser players to issue range requests and read the range headers.
func CORS(allowOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Authorization", "Range",
			"If-None-Match", "If-Modified-Since", requestIDHeader, serviceKeyHeader,
		},
		ExposeHeaders: []string{
			"Content-Length", "Content-Range", "Accept-Ranges", "ETag",
			"Last-Modified", "Content-Disposition", requestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(allowOrigins) == 0 || (len(allowOrigins) == 1 && allowOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowOrigins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

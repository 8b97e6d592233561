package middlewares

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/domain"
	"jan-server/services/media-storage/internal/infrastructure/auth"
	"jan-server/services/media-storage/internal/utils/platformerrors"
)

const (
	principalContextKey = "principal"
	serviceKeyHeader    = "X-Media-Service-Key"
	servicePrincipalID  = "service"
)

// AuthMiddleware resolves the caller from a bearer JWT or the internal service key.
// Requests without credentials pass through anonymously; invalid credentials are rejected.
func AuthMiddleware(validator *auth.Validator, cfg *config.Config, logger zerolog.Logger) gin.HandlerFunc {
	logger = logger.With().Str("component", "auth-middleware").Logger()
	return func(c *gin.Context) {
		if key := c.GetHeader(serviceKeyHeader); key != "" {
			if cfg.ServiceKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(cfg.ServiceKey)) != 1 {
				logger.Warn().Str("path", c.FullPath()).Msg("invalid service key")
				platformerrors.WriteUnauthorized(c, "invalid service key")
				return
			}
			setPrincipal(c, domain.Principal{
				ID:         servicePrincipalID,
				AuthMethod: domain.AuthMethodServiceKey,
				Subject:    servicePrincipalID,
			})
			c.Next()
			return
		}

		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" || !validator.Enabled() {
			c.Next()
			return
		}

		principal, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			logger.Warn().Err(err).Str("path", c.FullPath()).Msg("jwt validation failed")
			platformerrors.WriteUnauthorized(c, "invalid token")
			return
		}
		setPrincipal(c, principal)
		c.Next()
	}
}

// RequireAuth rejects anonymous callers when authentication is enabled.
func RequireAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.AuthEnabled {
			c.Next()
			return
		}
		if _, ok := PrincipalFromContext(c); !ok {
			platformerrors.WriteUnauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(c *gin.Context) (domain.Principal, bool) {
	val, ok := c.Get(principalContextKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := val.(domain.Principal)
	return principal, ok
}

func setPrincipal(c *gin.Context, principal domain.Principal) {
	c.Set(principalContextKey, principal)
	c.Request = c.Request.WithContext(domain.WithPrincipal(c.Request.Context(), principal))
	c.Writer.Header().Set("X-Principal-Id", principal.ID)
	c.Writer.Header().Set("X-Auth-Method", string(principal.AuthMethod))
}

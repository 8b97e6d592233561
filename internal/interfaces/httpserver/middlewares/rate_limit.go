package middlewares

import (
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"jan-server/services/media-storage/internal/utils/platformerrors"
)

const (
	rateLimitCacheSize = 10_000
	rateLimitIdleTTL   = 10 * time.Minute
)

// RateLimitMiddleware applies a token bucket per key (principal or IP).
// Idle buckets are evicted so the key space stays bounded.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}

	var mu sync.Mutex
	buckets := expirable.NewLRU[string, *rate.Limiter](rateLimitCacheSize, nil, rateLimitIdleTTL)
	retryAfter := strconv.Itoa(int(max(1, 1/rps)))

	return func(c *gin.Context) {
		key := rateKey(c)

		mu.Lock()
		limiter, ok := buckets.Get(key)
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
		// re-adding refreshes the idle TTL
		buckets.Add(key, limiter)
		mu.Unlock()

		if !limiter.Allow() {
			c.Header("Retry-After", retryAfter)
			platformerrors.WriteRateLimited(c, "too many requests")
			return
		}
		c.Next()
	}
}

func rateKey(c *gin.Context) string {
	if principal, ok := PrincipalFromContext(c); ok && principal.ID != "" {
		return "pid:" + principal.ID
	}
	if ip := clientIP(c.ClientIP()); ip != "" {
		return "ip:" + ip
	}
	return "anonymous"
}

// Normalize IPv6-mapped IPv4 etc.
func clientIP(raw string) string {
	if raw == "" {
		return ""
	}
	if ip := net.ParseIP(raw); ip != nil {
		return ip.String()
	}
	return raw
}

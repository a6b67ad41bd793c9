package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// rate limit headers set by RateLimiter, readable by browser clients
var rateLimitHeaders = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"}

// CORS lets browser tools on any origin drive the control plane. Requests still need the access token.
func CORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	// EventSource reconnects with Last-Event-ID and Cache-Control
	cfg.AddAllowHeaders("Authorization", "Last-Event-ID", "Cache-Control")
	cfg.AddExposeHeaders(rateLimitHeaders...)
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}

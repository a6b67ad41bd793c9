package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// EventsPath is the server-sent events stream. It is flushed per event and must not be buffered by gzip.
const EventsPath = "/v1/sync/events"

// Gzip compresses JSON responses. Sync results with long error lists compress well.
func Gzip() gin.HandlerFunc {
	return gzip.Gzip(gzip.BestSpeed, gzip.WithExcludedPaths([]string{EventsPath}))
}

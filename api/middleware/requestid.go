package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header used to propagate the request ID.
	RequestIDHeader = "X-Request-Id"
	// ContextKeyRequestID is the gin context key for the request ID.
	ContextKeyRequestID = "request_id"
)

// RequestID generates a unique request ID for every request, sets it in the
// gin context and the response header, and writes one access log line per
// request. The line carries the matched route and, for per-post lookups, the
// slug, so slow upstream refreshes can be traced to a post.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Reuse incoming request ID if provided (e.g. from a load balancer).
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(ContextKeyRequestID, id)
		c.Writer.Header().Set(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		attrs := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		}
		if slug := c.Param("slug"); slug != "" {
			attrs = append(attrs, "slug", slug)
		}

		// 503, 408 and 429 are expected under upstream trouble or load.
		level := slog.LevelInfo
		switch status := c.Writer.Status(); {
		case status == http.StatusServiceUnavailable,
			status == http.StatusRequestTimeout,
			status == http.StatusTooManyRequests:
			level = slog.LevelWarn
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "request", attrs...)
	}
}

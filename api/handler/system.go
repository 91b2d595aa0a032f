package handler

import (
	"net/http"

	"github.com/ddevcap/blog-metadata/backend"
	"github.com/ddevcap/blog-metadata/metadata"
	"github.com/gin-gonic/gin"
)

// UpstreamHealth reports upstream reachability for the readiness probe.
type UpstreamHealth interface {
	AllAvailable() bool
	Statuses() []backend.UpstreamHealthStatus
}

// CacheStats exposes the cache clocks.
type CacheStats interface {
	Stats() metadata.Stats
}

type SystemHandler struct {
	health UpstreamHealth
	cache  CacheStats
}

// NewSystemHandler returns a handler for the hello and probe routes. Either
// dependency may be nil, in which case /ready omits it.
func NewSystemHandler(health UpstreamHealth, cache CacheStats) *SystemHandler {
	return &SystemHandler{health: health, cache: cache}
}

// Hello handles GET /hello.
func (h *SystemHandler) Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello, world!"})
}

// HealthLive handles GET /health and always returns 200.
// Used as a liveness probe by container orchestrators.
func (h *SystemHandler) HealthLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthReady handles GET /ready. It answers 503 while any upstream is marked
// unavailable by the health checker. It neither triggers nor waits for a
// cache refresh.
func (h *SystemHandler) HealthReady(c *gin.Context) {
	body := gin.H{"status": "ready"}
	status := http.StatusOK

	if h.health != nil {
		body["upstreams"] = h.health.Statuses()
		if !h.health.AllAvailable() {
			body["status"] = "not ready"
			status = http.StatusServiceUnavailable
		}
	}
	if h.cache != nil {
		body["cache"] = h.cache.Stats()
	}
	c.JSON(status, body)
}

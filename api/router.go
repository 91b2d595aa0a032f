package api

import (
	"net/http"
	"time"

	"github.com/ddevcap/blog-metadata/api/handler"
	"github.com/ddevcap/blog-metadata/api/middleware"
	"github.com/ddevcap/blog-metadata/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Cache is what the routes need from the metadata cache.
type Cache interface {
	handler.MetadataReader
	handler.CacheStats
}

// corsMiddleware returns a gin-contrib/cors middleware for the configured
// origins. A "*" entry (the default) allows every origin.
func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Accept-Encoding", "X-Request-Id"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		MaxAge:        24 * time.Hour,
	}
	for _, o := range cfg.CORSOrigins {
		if o == "*" {
			c.AllowAllOrigins = true
			break
		}
		c.AllowOrigins = append(c.AllowOrigins, o)
	}
	if !c.AllowAllOrigins && len(c.AllowOrigins) == 0 {
		c.AllowAllOrigins = true
	}
	return cors.New(c)
}

// NewRouter builds the HTTP handler and returns it together with a function
// that releases the rate limiter's background goroutine. health may be nil.
func NewRouter(cfg config.Config, cache Cache, health handler.UpstreamHealth) (http.Handler, func()) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	rateLimit, stopLimiter := middleware.RateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	// The timeout goes before the concurrency limit so that waiting for a
	// slot is bounded by the request deadline.
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		corsMiddleware(cfg),
		middleware.Gzip(),
		rateLimit,
		middleware.Timeout(cfg.RequestTimeout),
		middleware.ConcurrencyLimit(cfg.MaxConcurrentRequests),
	)

	blogH := handler.NewBlogHandler(cache)
	systemH := handler.NewSystemHandler(health, cache)

	blog := r.Group("/blog")
	{
		blog.GET("/metadata", blogH.ListMetadata)
		blog.GET("/metadata/:slug", blogH.GetMetadata)
	}

	r.GET("/hello", systemH.Hello)

	r.GET("/api-doc/openapi.json", handler.OpenAPI)
	r.GET("/swagger-ui", handler.SwaggerUI)

	// Health probes, for container orchestrators.
	r.GET("/health", systemH.HealthLive)
	r.GET("/ready", systemH.HealthReady)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return r, stopLimiter
}

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ddevcap/blog-metadata/api/middleware"
	"github.com/ddevcap/blog-metadata/metadata"
	"github.com/gin-gonic/gin"
)

// MetadataReader is the read side of the metadata cache.
type MetadataReader interface {
	Get(ctx context.Context, slug string) (metadata.Metadata, error)
	All(ctx context.Context) (map[string]metadata.Metadata, error)
}

type BlogHandler struct {
	cache MetadataReader
}

func NewBlogHandler(cache MetadataReader) *BlogHandler {
	return &BlogHandler{cache: cache}
}

// GetMetadata handles GET /blog/metadata/:slug.
func (h *BlogHandler) GetMetadata(c *gin.Context) {
	md, err := h.cache.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, md)
}

// ListMetadata handles GET /blog/metadata and returns every known post keyed
// by slug.
func (h *BlogHandler) ListMetadata(c *gin.Context) {
	all, err := h.cache.All(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

// abort maps a cache error to its HTTP response.
func (h *BlogHandler) abort(c *gin.Context, err error) {
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "blog post not found"})
	case middleware.TimedOut(c):
		middleware.AbortTimedOut(c)
	case errors.Is(err, metadata.ErrUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	default:
		slog.Error("metadata lookup failed", "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// Timeout attaches a deadline of d to the request context. Upstream calls made
// on behalf of the request observe it; handlers translate an expired deadline
// into 408 via TimedOut. A d of 0 or less disables the deadline.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// TimedOut reports whether the request's deadline has passed.
func TimedOut(c *gin.Context) bool {
	return errors.Is(c.Request.Context().Err(), context.DeadlineExceeded)
}

// AbortTimedOut answers 408 for a request whose deadline has passed.
func AbortTimedOut(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{"error": "request timed out"})
}

// ConcurrencyLimit caps the number of requests handled at once. Requests over
// the limit wait for a slot until their context ends. A max of 0 or less
// disables the limit.
func ConcurrencyLimit(max int) gin.HandlerFunc {
	if max <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	sem := semaphore.NewWeighted(int64(max))
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			if TimedOut(c) {
				AbortTimedOut(c)
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "server busy"})
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}

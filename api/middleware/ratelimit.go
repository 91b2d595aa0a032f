package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"
)

// ipWindow counts the requests of one IP within a fixed window.
type ipWindow struct {
	requests int
}

// requestLimiter is an in-memory fixed-window rate limiter keyed by client IP.
// Windows live in a TTL cache so idle IPs are evicted automatically.
type requestLimiter struct {
	mu      sync.Mutex
	max     int
	windows *ttlcache.Cache[string, *ipWindow]
}

func newRequestLimiter(max int, window time.Duration) *requestLimiter {
	windows := ttlcache.New[string, *ipWindow](
		ttlcache.WithTTL[string, *ipWindow](window),
		ttlcache.WithDisableTouchOnHit[string, *ipWindow](),
	)
	go windows.Start() // evicts expired windows
	return &requestLimiter{max: max, windows: windows}
}

// allow records a request for ip and reports whether it is within the limit.
// When it is not, retryAfter is the time left until the window resets.
func (l *requestLimiter) allow(ip string) (ok bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item := l.windows.Get(ip)
	if item == nil {
		l.windows.Set(ip, &ipWindow{requests: 1}, ttlcache.DefaultTTL)
		return true, 0
	}
	w := item.Value()
	if w.requests >= l.max {
		return false, time.Until(item.ExpiresAt())
	}
	w.requests++
	return true, 0
}

// RateLimiter returns a middleware that answers 429 once a client IP exceeds
// max requests within window. Clients are keyed by gin's ClientIP, so the
// engine's trusted-proxy settings decide whether X-Forwarded-For counts. The
// stop function ends the background eviction loop. A max of 0 or less
// disables limiting.
func RateLimiter(max int, window time.Duration) (gin.HandlerFunc, func()) {
	if max <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }, func() {}
	}
	limiter := newRequestLimiter(max, window)

	mw := func(c *gin.Context) {
		ok, retryAfter := limiter.allow(c.ClientIP())
		if !ok {
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
	return mw, limiter.windows.Stop
}

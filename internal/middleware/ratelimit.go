package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redisc "github.com/noted-space/noted/internal/pkg/redis"
	"github.com/noted-space/noted/internal/pkg/response"
)

// RateLimitOption tunes RateLimit.
type RateLimitOption func(*rateLimiter)

// WithLimit allows limit requests per window.
func WithLimit(limit int, window time.Duration) RateLimitOption {
	return func(l *rateLimiter) {
		if limit > 0 && window > 0 {
			l.max, l.window = int64(limit), window
		}
	}
}

type rateLimiter struct {
	rc     *redisc.Client
	max    int64
	window time.Duration
	now    func() time.Time
}

// RateLimit counts anonymous requests per client IP in fixed windows,
// 50 per second unless WithLimit says otherwise. Signed-in users pass
// through, as does everything when redis is off or unreachable.
func RateLimit(rc *redisc.Client, opts ...RateLimitOption) gin.HandlerFunc {
	l := &rateLimiter{rc: rc, max: 50, window: time.Second, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l.handle
}

func (l *rateLimiter) handle(c *gin.Context) {
	ip := c.ClientIP()
	if l.rc == nil || ip == "" || IsAuthenticated(c) {
		c.Next()
		return
	}

	bucket := l.now().UnixNano() / int64(l.window)
	key := "noted:rate_limit:" + ip + ":" + strconv.FormatInt(bucket, 10)
	count, err := l.rc.Incr(c.Request.Context(), key, 2*l.window)
	if err != nil {
		c.Next()
		return
	}

	c.Header("X-RateLimit-Limit", strconv.FormatInt(l.max, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(l.max-count, 0), 10))
	if count > l.max {
		retry := max(int(l.window/time.Second), 1)
		c.Header("Retry-After", strconv.Itoa(retry))
		response.Fail(c, http.StatusTooManyRequests, "too many requests, slow down")
		return
	}
	c.Next()
}

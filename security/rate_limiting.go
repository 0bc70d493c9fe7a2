package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter guards the submit endpoint with a redis fixed-window
// counter keyed by client IP.
type RateLimiter struct {
	redis  redis.Cmdable
	limit  int64
	window time.Duration
}

func NewRateLimiter(client redis.Cmdable, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  client,
		limit:  int64(limit),
		window: window,
	}
}

// SubmitGuard is a route middleware: rejects obvious bot user agents,
// then counts requests per IP within the window. Redis errors do not
// block the request.
func (r *RateLimiter) SubmitGuard(e *core.RequestEvent) error {
	userAgent := e.Request.Header.Get("User-Agent")
	if r.isSuspiciousUserAgent(userAgent) {
		return e.JSON(http.StatusForbidden, map[string]string{
			"error": "Access denied",
		})
	}

	ctx := e.Request.Context()
	key := fmt.Sprintf("ratelimit:submit:%s", e.RealIP())

	count, err := r.redis.Incr(ctx, key).Result()
	if err == nil {
		if count == 1 {
			r.redis.Expire(ctx, key, r.window)
		}
		if count > r.limit {
			return e.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}
	}

	return e.Next()
}

func (r *RateLimiter) isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}

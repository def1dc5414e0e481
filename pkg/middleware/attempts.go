package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/yamar8/lovetree-backend/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AttemptLimiter throttles credential guessing per IP and endpoint. Every
// attempt is counted in Redis for window; a successful one resets the count.
type AttemptLimiter struct {
	rdb    redis.Cmdable
	max    int64
	window time.Duration
}

// NewAttemptLimiter returns a limiter allowing maxAttempts per window. A nil
// client disables it.
func NewAttemptLimiter(rdb redis.Cmdable, maxAttempts int, window time.Duration) *AttemptLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}

	return &AttemptLimiter{rdb: rdb, max: int64(maxAttempts), window: window}
}

func (l *AttemptLimiter) Middleware(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.rdb == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		requestID := c.GetString("requestID")
		key := "attempts:" + scope + ":" + c.ClientIP()

		cnt, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			// Fail open, Redis being down shouldn't lock everyone out
			zap.L().Warn("Attempt limiter unavailable", zap.Error(err), zap.String("requestID", requestID))
			c.Next()
			return
		}

		if cnt == 1 {
			l.rdb.Expire(ctx, key, l.window)
		}

		if cnt > l.max {
			if ttl, err := l.rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			}

			response.Fail(c, http.StatusTooManyRequests, "Too many attempts, try again later")
			return
		}

		c.Next()

		if c.Writer.Status() < http.StatusBadRequest {
			l.rdb.Del(ctx, key)
		}
	}
}

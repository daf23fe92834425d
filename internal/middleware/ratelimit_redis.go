// ratelimit_redis.go provides a Redis-backed rate limiter for multi-replica
// deployments. The in-memory limiter in ratelimit.go keeps per-replica state,
// which multiplies the effective limit by the replica count; backing the
// buckets with Redis makes the limit global.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/learnstack/lms-backend/internal/config"
)

// RedisRateLimiter enforces a shared GCRA rate limit via Redis
type RedisRateLimiter struct {
	client  *redis.Client
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	rpm     int
}

// NewRedisRateLimiter connects to Redis using the rate limiting config.
// The connection is lazy; a Redis outage degrades to fail-open per request
// rather than failing construction.
func NewRedisRateLimiter(cfg config.RateLimitingConfig) *RedisRateLimiter {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &RedisRateLimiter{
		client:  client,
		limiter: redis_rate.NewLimiter(client),
		limit: redis_rate.Limit{
			Rate:   cfg.RequestsPerMinute,
			Period: time.Minute,
			Burst:  cfg.Burst,
		},
		rpm: cfg.RequestsPerMinute,
	}
}

// Close releases the underlying Redis connection pool
func (rl *RedisRateLimiter) Close() error {
	return rl.client.Close()
}

// RedisRateLimitMiddleware creates a Gin middleware backed by a shared Redis
// limiter. When Redis is unreachable the request is allowed through; dropping
// traffic because the limiter store is down would turn a Redis outage into a
// full API outage.
func RedisRateLimitMiddleware(limiter *RedisRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getRateLimitKey(c)

		res, err := limiter.limiter.Allow(c.Request.Context(), key, limiter.limit)
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.rpm))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if res.Allowed == 0 {
			retryAfter := int(res.RetryAfter.Seconds() + 0.5)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

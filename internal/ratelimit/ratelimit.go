// Package ratelimit throttles report submission per client IP using a Redis
// sliding window, so one device cannot flood the verification queue.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coastwatch-systems/coastwatch/internal/httputil"
	"github.com/coastwatch-systems/coastwatch/internal/logging"
	"github.com/coastwatch-systems/coastwatch/internal/metrics"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

type redisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// slidingWindow keeps one sorted set per key, scored by nanosecond timestamp,
// and admits the request only while the set holds fewer than limit entries.
const slidingWindow = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, 0, window_start)
local current = redis.call('ZCARD', key)

if current < limit then
	redis.call('ZADD', key, now, now)
	redis.call('EXPIRE', key, ttl)
	return 1
end
return 0
`

// NewRedisLimiter connects to Redis at the given URL and verifies the
// connection before returning.
func NewRedisLimiter(redisURL string, limit int, window time.Duration) (Limiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &redisLimiter{client: client, limit: int64(limit), window: window}, nil
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixNano()
	windowStart := now - l.window.Nanoseconds()
	ttl := int64(l.window.Seconds()) + 1

	result, err := l.client.Eval(ctx, slidingWindow,
		[]string{"ratelimit:" + key}, now, windowStart, l.limit, ttl).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return result == 1, nil
}

func (l *redisLimiter) Close() error {
	return l.client.Close()
}

// NopLimiter admits everything. Used when no Redis URL is configured.
type NopLimiter struct{}

func (NopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
func (NopLimiter) Close() error                                { return nil }

// Middleware enforces the limiter per client IP. Limiter errors fail open:
// a Redis outage degrades throttling, not report intake.
func Middleware(limiter Limiter, log *logging.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := httputil.GetClientIP(r)
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				log.WarnContext(r.Context(), "rate limiter unavailable", logging.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				metrics.RateLimitHits.Inc()
				log.WarnContext(r.Context(), "rate limit exceeded", logging.IP(ip))
				httputil.WriteError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

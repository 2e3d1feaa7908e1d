package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/telhawk-systems/relay/intake/internal/metrics"
)

// RateLimiter decides whether a submission from key may be forwarded.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// slidingWindowScript keeps one sorted set per key holding the accepted
// submissions inside the window, scored by their timestamp. Members are
// random so submissions in the same nanosecond are counted separately.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

	local current = redis.call('ZCARD', key)

	if current < limit then
		redis.call('ZADD', key, now, member)
		redis.call('EXPIRE', key, ttl)
		return 1
	else
		return 0
	end
`)

type redisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisRateLimiter connects to redisURL and returns a sliding window
// limiter allowing limit submissions per window per key.
func NewRedisRateLimiter(redisURL string, limit int, window time.Duration) (RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &redisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}, nil
}

// Allow implements sliding window rate limiting using Redis
func (r *redisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := r.now().UnixNano()
	windowStart := now - r.window.Nanoseconds()
	ttl := int64(r.window/time.Second) + 1

	result, err := slidingWindowScript.Run(ctx, r.client, []string{"relay:ratelimit:" + key}, now, windowStart, r.limit, ttl, uuid.NewString()).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed := result == 1
	if !allowed {
		metrics.RateLimitHits.Inc()
	}

	return allowed, nil
}

func (r *redisRateLimiter) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// MemoryRateLimiter is a per-process token bucket per key. It is suitable
// for a single intake instance; use the Redis limiter when running several.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

// NewMemoryRateLimiter allows requests per window per key on average, with
// bursts of up to burst submissions.
func NewMemoryRateLimiter(requests int, window time.Duration, burst int) *MemoryRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &MemoryRateLimiter{
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (m *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	limiter, ok := m.buckets[key]
	if !ok {
		limiter = rate.NewLimiter(m.limit, m.burst)
		m.buckets[key] = limiter
	}
	m.mu.Unlock()

	if !limiter.Allow() {
		metrics.RateLimitHits.Inc()
		return false, nil
	}
	return true, nil
}

func (m *MemoryRateLimiter) Close() error {
	m.mu.Lock()
	m.buckets = make(map[string]*rate.Limiter)
	m.mu.Unlock()
	return nil
}

// NoOpRateLimiter always allows requests (for testing or disabled rate limiting)
type NoOpRateLimiter struct{}

func (n *NoOpRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (n *NoOpRateLimiter) Close() error {
	return nil
}

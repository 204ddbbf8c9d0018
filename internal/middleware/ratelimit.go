package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether a request for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LocalLimiter keeps one token bucket per key in process memory.
type LocalLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(rps float64, burst int) *LocalLimiter {
	return &LocalLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()
	return v.limiter.Allow(), nil
}

// Cleanup removes buckets idle for longer than idle. Run it periodically.
func (l *LocalLimiter) Cleanup(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if time.Since(v.lastSeen) > idle {
			delete(l.visitors, key)
		}
	}
}

// RunCleanup sweeps idle buckets every interval until ctx is done.
func (l *LocalLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup(10 * time.Minute)
		}
	}
}

// redisTokenBucket refills and consumes atomically.
// KEYS[1] bucket key; ARGV: rate, capacity, now (seconds, float)
var redisTokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if not tokens or not last then
  tokens = capacity
  last = now
end

local elapsed = now - last
if elapsed > 0 then
  tokens = math.min(capacity, tokens + elapsed * rate)
  last = now
end

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "last_refill", last)
redis.call("EXPIRE", key, 600)
return allowed
`)

// RedisLimiter shares token buckets between replicas through Redis.
type RedisLimiter struct {
	client *redis.Client
	rps    float64
	burst  int
	prefix string
}

func NewRedisLimiter(client *redis.Client, rps float64, burst int) *RedisLimiter {
	return &RedisLimiter{client: client, rps: rps, burst: burst, prefix: "insight-bridge:ratelimit:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(time.Now().UnixMicro()) / 1e6
	res, err := redisTokenBucket.Run(ctx, l.client, []string{l.prefix + key},
		strconv.FormatFloat(l.rps, 'f', -1, 64), l.burst, strconv.FormatFloat(now, 'f', 6, 64)).Int()
	if err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return res == 1, nil
}

// RateLimit rejects requests over the owner's budget with 429. It runs after
// Authenticate, so the key is the owner; if the limiter backend fails the
// request is let through.
func RateLimit(l Limiter, onError func(error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetOwnerFromContext(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}
			ok, err := l.Allow(r.Context(), key)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				w.Header().Set("Retry-After", "1")
				WriteError(w, http.StatusTooManyRequests, "RateLimited", "rate limit exceeded, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Result of a rate limited hit.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

func result(count int64, limit int, ttl time.Duration) Result {
	res := Result{Allowed: count <= int64(limit), Limit: limit}
	if remaining := int64(limit) - count; remaining > 0 {
		res.Remaining = int(remaining)
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res
}

// redis

type redisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

var _ Limiter = (*redisLimiter)(nil)

func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) Limiter {
	return &redisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	if key == "" {
		return Result{}, errors.New("rate limiter key is empty")
	}
	windowStart := time.Now().Truncate(l.window).Unix()
	rkey := l.prefix + ":" + key + ":" + time.Unix(windowStart, 0).UTC().Format("20060102T150405")

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, rkey)
		pipe.ExpireNX(ctx, rkey, l.window)
		ttl = pipe.PTTL(ctx, rkey)
		return nil
	})
	if err != nil {
		return Result{}, errors.Wrap(err, "counting hit")
	}
	return result(incr.Val(), l.limit, ttl.Val()), nil
}

// memory

type window struct {
	start time.Time
	count int64
}

type memoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*window
	now     func() time.Time
}

var _ Limiter = (*memoryLimiter)(nil)

// NewMemoryLimiter keeps the counters in process. Used when no redis is configured.
func NewMemoryLimiter(limit int, windowSize time.Duration) Limiter {
	return &memoryLimiter{limit: limit, window: windowSize, windows: make(map[string]*window), now: time.Now}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	if key == "" {
		return Result{}, errors.New("rate limiter key is empty")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	start := now.Truncate(l.window)
	w, ok := l.windows[key]
	if !ok || !w.start.Equal(start) {
		w = &window{start: start}
		l.windows[key] = w
		l.evict(start)
	}
	w.count++
	return result(w.count, l.limit, start.Add(l.window).Sub(now)), nil
}

// evict drops the windows that ended before start. Caller holds the lock.
func (l *memoryLimiter) evict(start time.Time) {
	for k, w := range l.windows {
		if w.start.Before(start) {
			delete(l.windows, k)
		}
	}
}

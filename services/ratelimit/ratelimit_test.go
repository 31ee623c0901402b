package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute).(*memoryLimiter)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	res, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	res, _ = l.Allow(ctx, "1.2.3.4")
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Minute, res.RetryAfter)

	// other keys have their own counter
	res, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, res.Allowed)

	// next window
	now = now.Add(time.Minute)
	res, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, res.Allowed)
	assert.Len(t, l.windows, 1)
}

func TestMemoryLimiter_EmptyKey(t *testing.T) {
	_, err := NewMemoryLimiter(1, time.Second).Allow(context.Background(), "")
	assert.Error(t, err)
}

func TestRedisLimiter_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()
	l := NewRedisLimiter(client, "classboom:test", 2, time.Minute)

	_, err := l.Allow(context.Background(), "")
	assert.EqualError(t, err, "rate limiter key is empty")

	_, err = l.Allow(context.Background(), "1.2.3.4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "counting hit")
}

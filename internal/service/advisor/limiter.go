package advisor

import (
	"context"
	"sync"
	"time"

	"jalsaathi/internal/redis"
)

// Limiter admits at most a fixed number of calls per key and window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// memoryLimiter is a sliding window kept per process.
type memoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
	mu     sync.Mutex
	hits   map[string][]time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) Limiter {
	return &memoryLimiter{limit: limit, window: window, now: time.Now, hits: make(map[string][]time.Time)}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	queue := l.hits[key]
	cutoff := now.Add(-l.window)
	idx := 0
	for _, t := range queue {
		if t.After(cutoff) {
			break
		}
		idx++
	}
	queue = queue[idx:]
	if len(queue) >= l.limit {
		l.hits[key] = queue
		return false, nil
	}
	l.hits[key] = append(queue, now)
	return true, nil
}

// redisLimiter is a fixed window shared by every instance.
type redisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) Limiter {
	return &redisLimiter{client: client, limit: limit, window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Incr(ctx, "ratelimit:"+key, l.window)
	if err != nil {
		return false, err
	}
	return n <= int64(l.limit), nil
}

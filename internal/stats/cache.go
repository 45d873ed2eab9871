package stats

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores one Summary snapshot between invalidations.
type Cache interface {
	Get(ctx context.Context) (Summary, bool)
	Set(ctx context.Context, s Summary)
	Invalidate(ctx context.Context)
}

// NoopCache disables caching; every read recomputes.
type NoopCache struct{}

func (NoopCache) Get(context.Context) (Summary, bool) { return Summary{}, false }
func (NoopCache) Set(context.Context, Summary)        {}
func (NoopCache) Invalidate(context.Context)          {}

// MemoryCache is a process-local snapshot for single-instance deployments
// and tests.
type MemoryCache struct {
	mu    sync.RWMutex
	value *Summary
}

func NewMemoryCache() *MemoryCache { return &MemoryCache{} }

func (c *MemoryCache) Get(context.Context) (Summary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.value == nil {
		return Summary{}, false
	}
	return *c.value, true
}

func (c *MemoryCache) Set(_ context.Context, s Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = &s
}

func (c *MemoryCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
}

const (
	redisKey = "loancore:stats:summary"

	// redisTTL bounds staleness if an invalidation is ever lost (for
	// example a crash between commit and DEL).
	redisTTL = 5 * time.Minute
)

// RedisCache shares the snapshot across instances. Invalidation is a DEL
// issued on every committed transition.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context) (Summary, bool) {
	raw, err := c.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		return Summary{}, false
	}
	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return Summary{}, false
	}
	return s, true
}

func (c *RedisCache) Set(ctx context.Context, s Summary) {
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	// Best effort: a failed Set just means the next read recomputes.
	_ = c.client.Set(ctx, redisKey, raw, redisTTL).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	_ = c.client.Del(ctx, redisKey).Err()
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/exportflow/internal/config"
	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	runLockKey = "exportflow:run:lock"
	lastRunKey = "exportflow:run:last"
)

// releaseScript deletes the lock only while it is still held by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunCache coordinates runs across processes and remembers the last result.
type RunCache interface {
	// AcquireRunLock reports whether owner now holds the run lock.
	AcquireRunLock(ctx context.Context, owner string) (bool, error)
	ReleaseRunLock(ctx context.Context, owner string) error
	SetLastRun(ctx context.Context, run *domain.RunRecord) error
	GetLastRun(ctx context.Context) (*domain.RunRecord, bool, error)
	Close() error
}

type redisRunCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRunCache struct{}

// NewRunCache returns a Redis-backed cache, or a no-op one when caching is disabled.
func NewRunCache(ctx context.Context, cfg config.CacheConfig) (RunCache, error) {
	if !cfg.Enabled {
		return &noopRunCache{}, nil
	}

	client, ttl, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &redisRunCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopRunCache() RunCache {
	return &noopRunCache{}
}

func (c *redisRunCache) AcquireRunLock(ctx context.Context, owner string) (bool, error) {
	ok, err := c.client.SetNX(ctx, runLockKey, owner, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

func (c *redisRunCache) ReleaseRunLock(ctx context.Context, owner string) error {
	if err := releaseScript.Run(ctx, c.client, []string{runLockKey}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("redis release lock failed: %w", err)
	}
	return nil
}

func (c *redisRunCache) SetLastRun(ctx context.Context, run *domain.RunRecord) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode last run cache: %w", err)
	}

	if err := c.client.Set(ctx, lastRunKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRunCache) GetLastRun(ctx context.Context) (*domain.RunRecord, bool, error) {
	payload, err := c.client.Get(ctx, lastRunKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var run domain.RunRecord
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, false, fmt.Errorf("decode last run cache: %w", err)
	}
	return &run, true, nil
}

func (c *redisRunCache) Close() error {
	return c.client.Close()
}

func (c *noopRunCache) AcquireRunLock(context.Context, string) (bool, error) { return true, nil }

func (c *noopRunCache) ReleaseRunLock(context.Context, string) error { return nil }

func (c *noopRunCache) SetLastRun(context.Context, *domain.RunRecord) error { return nil }

func (c *noopRunCache) GetLastRun(context.Context) (*domain.RunRecord, bool, error) {
	return nil, false, nil
}

func (c *noopRunCache) Close() error { return nil }

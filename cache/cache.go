package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Clock abstracts time so expiry can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

type Cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, value any) (bool, error)
	Del(ctx context.Context, key string) error
}

type memoryEntry struct {
	raw       []byte
	expiresAt time.Time
}

type MemoryCache struct {
	lck   sync.Mutex
	clock Clock
	items map[string]memoryEntry
}

func NewMemory(clock Clock) *MemoryCache {
	if clock == nil {
		clock = RealClock{}
	}
	return &MemoryCache{clock: clock, items: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.lck.Lock()
	defer c.lck.Unlock()
	var entry = memoryEntry{raw: raw}
	if ttl > 0 {
		entry.expiresAt = c.clock.Now().Add(ttl)
	}
	c.items[key] = entry
	return nil
}
func (c *MemoryCache) Get(ctx context.Context, key string, value any) (bool, error) {
	c.lck.Lock()
	entry, ok := c.items[key]
	if ok && !entry.expiresAt.IsZero() && c.clock.Now().After(entry.expiresAt) {
		delete(c.items, key)
		ok = false
	}
	c.lck.Unlock()
	if !ok {
		return false, nil
	}
	if value == nil {
		return true, nil
	}
	if err := json.Unmarshal(entry.raw, value); err != nil {
		return false, err
	}
	return true, nil
}
func (c *MemoryCache) Del(ctx context.Context, key string) error {
	c.lck.Lock()
	defer c.lck.Unlock()
	delete(c.items, key)
	return nil
}
func (c *MemoryCache) Len() int {
	c.lck.Lock()
	defer c.lck.Unlock()
	return len(c.items)
}

type RedisCache struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}
func (c *RedisCache) Get(ctx context.Context, key string, value any) (bool, error) {
	cmd := c.client.Get(ctx, key)
	if cmd.Err() != nil {
		if cmd.Err() == redis.Nil {
			return false, nil
		}
		return false, cmd.Err()
	}
	raw, err := cmd.Bytes()
	if err != nil {
		return false, err
	}
	if value == nil {
		return true, nil
	}
	if err := json.Unmarshal(raw, value); err != nil {
		return false, err
	}
	return true, nil
}
func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
